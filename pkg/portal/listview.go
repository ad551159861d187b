package portal

import (
	"sort"
	"strings"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

const (
	StatusAll = "all"

	SortDateDesc = "date-desc"
	SortDateAsc  = "date-asc"
	SortStatus   = "status"
)

// ListQuery is the transient search, filter and sort state of a list view.
type ListQuery struct {
	Search string
	Status string
	Sort   string
}

// Counts summarises a loaded list by status.
type Counts struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

func countStatuses(list []odclient.Request) Counts {
	counts := Counts{Total: len(list)}
	for _, r := range list {
		switch r.Status {
		case odclient.StatusPending:
			counts.Pending++
		case odclient.StatusApproved:
			counts.Approved++
		case odclient.StatusRejected:
			counts.Rejected++
		}
	}
	return counts
}

// filterRequests keeps requests matching the status filter and whose search
// fields contain the term, case-insensitively. Order is preserved.
func filterRequests(list []odclient.Request, q ListQuery, fields func(odclient.Request) []string) []odclient.Request {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	status := strings.ToLower(strings.TrimSpace(q.Status))

	out := make([]odclient.Request, 0, len(list))
	for _, r := range list {
		if status != "" && status != StatusAll && string(r.Status) != status {
			continue
		}
		if term != "" && !containsAny(fields(r), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// sortRequests orders list in place. Unknown keys fall back to date-desc.
func sortRequests(list []odclient.Request, key string) {
	switch key {
	case SortDateAsc:
		sort.SliceStable(list, func(i, j int) bool { return list[i].AppliedAt.Before(list[j].AppliedAt) })
	case SortStatus:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Status < list[j].Status })
	default:
		sort.SliceStable(list, func(i, j int) bool { return list[i].AppliedAt.After(list[j].AppliedAt) })
	}
}

func studentSearchFields(r odclient.Request) []string {
	return []string{r.Venue, r.Reason, r.Description}
}

func facultySearchFields(r odclient.Request) []string {
	return []string{r.Name, r.RollNo, r.StudentEmail, r.Reason}
}
