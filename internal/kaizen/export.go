package kaizen

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var actionCSVHeader = []string{"title", "status", "due_date", "assignees", "description"}

// WriteActionsCSV writes one row per action. names maps user ids to display
// names; unknown ids are written as-is.
func WriteActionsCSV(w io.Writer, actions []Action, names map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(actionCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range actions {
		due := ""
		if a.DueDate != nil {
			due = a.DueDate.Format("2006-01-02")
		}
		assignees := make([]string, 0, len(a.Assignees))
		for _, id := range a.Assignees {
			if n, ok := names[id]; ok && n != "" {
				assignees = append(assignees, n)
				continue
			}
			assignees = append(assignees, id)
		}
		row := []string{a.Title, string(a.Status), due, strings.Join(assignees, "; "), a.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
