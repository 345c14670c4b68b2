package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/darasa/core/report"
)

func (cli *commandLine) printReport(assessmentID int) error {
	rep, err := cli.reports.AssessmentReport(context.Background(), assessmentID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cli.out, "%s (policy: %s)\n\n", rep.Title, rep.Policy)

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	header := []string{"STUDENT"}
	for _, q := range rep.Questions {
		header = append(header, fmt.Sprintf("Q%d (/%g)", q.Position, q.MaxPoints))
	}
	header = append(header, "STATUS", "AVERAGE")
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range rep.Students {
		name := row.Name
		if !row.Enrolled {
			name += " *"
		}
		cols := []string{name}
		for _, q := range rep.Questions {
			cols = append(cols, report.FormatPercent(row.Scores[q.QuestionID]))
		}
		cols = append(cols, string(row.Status), report.FormatPercent(row.Average))
		_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	if err = w.Flush(); err != nil {
		return err
	}

	c := rep.Completion
	_, _ = fmt.Fprintf(cli.out, "\nclass average: %s\n", report.FormatPercent(rep.ClassAverage))
	_, _ = fmt.Fprintf(cli.out, "complete: %d, partial: %d, missing: %d\n", c.Complete, c.Partial, c.Missing)
	return nil
}
