package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"
)

// ChecklistReport is the printable summary of a maintenance checklist.
type ChecklistReport struct {
	MaintenanceID   string   `json:"maintenance_id"`
	ClientName      string   `json:"client_name"`
	SerialNumber    string   `json:"serial_number"`
	Model           string   `json:"model"`
	Year            string   `json:"year"`
	MaintenanceDate string   `json:"maintenance_date"`
	Progress        int      `json:"progress"`
	Completed       []string `json:"completed"`
	Pending         []string `json:"pending"`
}

// BuildChecklistReport splits the tasks of a maintenance into completed and
// pending, each in checklist order.
func BuildChecklistReport(ctx context.Context, db *gorm.DB, id string) (*ChecklistReport, error) {
	rec, err := GetMaintenance(ctx, db, id)
	if err != nil {
		return nil, err
	}
	c := rec.Checklist()

	month := rec.MaintenanceDate
	if len(month) >= len("2006-01") {
		month = month[:len("2006-01")]
	}

	return &ChecklistReport{
		MaintenanceID:   rec.ID,
		ClientName:      rec.ClientName,
		SerialNumber:    rec.SerialNumber,
		Model:           rec.Model,
		Year:            rec.Year.String(),
		MaintenanceDate: month,
		Progress:        c.Progress(),
		Completed:       c.CompletedLabels(),
		Pending:         c.PendingLabels(),
	}, nil
}

// WriteText renders the report as plain text.
func (r *ChecklistReport) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Client:           %s\n", orNotInformed(r.ClientName))
	fmt.Fprintf(&b, "Serial number:    %s\n", orNotInformed(r.SerialNumber))
	fmt.Fprintf(&b, "Model:            %s\n", orNotInformed(r.Model))
	fmt.Fprintf(&b, "Year:             %s\n", orNotInformed(r.Year))
	fmt.Fprintf(&b, "Maintenance date: %s\n", orNotInformed(r.MaintenanceDate))
	fmt.Fprintf(&b, "Progress:         %d%%\n", r.Progress)

	fmt.Fprintf(&b, "\nCompleted tasks (%d)\n", len(r.Completed))
	for _, t := range r.Completed {
		fmt.Fprintf(&b, "  [x] %s\n", t)
	}
	fmt.Fprintf(&b, "\nPending tasks (%d)\n", len(r.Pending))
	for _, t := range r.Pending {
		fmt.Fprintf(&b, "  [ ] %s\n", t)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func orNotInformed(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not informed"
	}
	return s
}
