package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
	"github.com/noah-isme/campus-od-api/pkg/portal"
)

const dateLayout = "2006-01-02 15:04"

func printCounts(w io.Writer, c portal.Counts) {
	fmt.Fprintf(w, "total %d  pending %d  approved %d  rejected %d\n", c.Total, c.Pending, c.Approved, c.Rejected)
}

func printRequests(w io.Writer, list []odclient.Request) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no requests")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPPLIED\tNAME\tROLL\tREASON\tVENUE\tSTATUS")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.AppliedAt.Local().Format(dateLayout), r.Name, r.RollNo, r.Reason, r.Venue, r.Status)
	}
	_ = tw.Flush()
}

func printDetail(w io.Writer, r *odclient.Request) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Student\t%s <%s>\n", r.Name, r.StudentEmail)
	fmt.Fprintf(tw, "Roll no\t%s\n", r.RollNo)
	fmt.Fprintf(tw, "Department\t%s %s\n", r.DeptName, r.Section)
	fmt.Fprintf(tw, "Reason\t%s\n", r.Reason)
	fmt.Fprintf(tw, "Venue\t%s\n", r.Venue)
	fmt.Fprintf(tw, "Description\t%s\n", r.Description)
	fmt.Fprintf(tw, "Applied\t%s\n", r.AppliedAt.Local().Format(dateLayout))
	fmt.Fprintf(tw, "Status\t%s\n", r.Status)
	if r.ReviewedBy != nil {
		fmt.Fprintf(tw, "Reviewed by\t%s\n", *r.ReviewedBy)
	}
	_ = tw.Flush()
}
