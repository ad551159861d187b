// Package portal holds the client-side state of the OD portal: the student
// intake form, the polling student dashboard, the faculty review dashboard and
// the persisted session. It renders nothing; front ends drive these types.
package portal
