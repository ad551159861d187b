package models

// TransitionPolicy decides which status changes a review may perform.
type TransitionPolicy string

const (
	// TransitionLenient lets faculty flip between approved and rejected at will.
	TransitionLenient TransitionPolicy = "lenient"
	// TransitionStrict only allows decisions on pending requests.
	TransitionStrict TransitionPolicy = "strict"
)

var strictTransitions = map[ODStatus][]ODStatus{
	ODStatusPending: {ODStatusApproved, ODStatusRejected},
}

var lenientTransitions = map[ODStatus][]ODStatus{
	ODStatusPending:  {ODStatusApproved, ODStatusRejected},
	ODStatusApproved: {ODStatusApproved, ODStatusRejected},
	ODStatusRejected: {ODStatusApproved, ODStatusRejected},
}

// PolicyFor maps the strict flag from config onto a policy.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return TransitionStrict
	}
	return TransitionLenient
}

// Allows reports whether a request in status from may be moved to status to.
func (p TransitionPolicy) Allows(from, to ODStatus) bool {
	table := lenientTransitions
	if p == TransitionStrict {
		table = strictTransitions
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further review is possible under p.
func (p TransitionPolicy) Terminal(s ODStatus) bool {
	return p == TransitionStrict && s != ODStatusPending
}
