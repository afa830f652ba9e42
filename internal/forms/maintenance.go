// Package forms validates and normalizes record input before anything is
// written.
package forms

import (
	"strings"
	"time"

	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/types"
)

// MaintenanceForm holds the scalar fields of a maintenance record.
type MaintenanceForm struct {
	ClientName      string           `json:"client_name"`
	SerialNumber    string           `json:"serial_number"`
	Model           string           `json:"model"`
	Year            types.FlexString `json:"year"`
	MaintenanceDate string           `json:"maintenance_date"`
}

// Normalize trims every field in place.
func (f *MaintenanceForm) Normalize() {
	f.ClientName = strings.TrimSpace(f.ClientName)
	f.SerialNumber = strings.TrimSpace(f.SerialNumber)
	f.Model = strings.TrimSpace(f.Model)
	f.Year = types.FlexString(strings.TrimSpace(f.Year.String()))
	f.MaintenanceDate = strings.TrimSpace(f.MaintenanceDate)
}

// Validate requires every field and a parseable maintenance month.
func (f MaintenanceForm) Validate() error {
	f.Normalize()
	switch {
	case f.ClientName == "":
		return types.Invalid("client_name", "client name is required")
	case f.SerialNumber == "":
		return types.Invalid("serial_number", "serial number is required")
	case f.Year == "":
		return types.Invalid("year", "year is required")
	case f.Model == "":
		return types.Invalid("model", "model is required")
	case f.MaintenanceDate == "":
		return types.Invalid("maintenance_date", "maintenance date is required")
	}
	if _, err := f.Month(); err != nil {
		return err
	}
	return nil
}

// Month returns the first day of the maintenance month. Both YYYY-MM and
// YYYY-MM-DD are accepted.
func (f MaintenanceForm) Month() (models.Date, error) {
	s := strings.TrimSpace(f.MaintenanceDate)
	for _, layout := range []string{"2006-01", models.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewDate(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)), nil
		}
	}
	return models.Date{}, types.Invalid("maintenance_date", "maintenance date must be YYYY-MM or YYYY-MM-DD")
}

// FormFromModel fills a form from a stored maintenance.
func FormFromModel(m *models.Maintenance) MaintenanceForm {
	return MaintenanceForm{
		ClientName:      m.ClientName,
		SerialNumber:    m.SerialNumber,
		Model:           m.Model,
		Year:            types.FlexString(m.Year),
		MaintenanceDate: m.MaintenanceDate.String(),
	}
}
