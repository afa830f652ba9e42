package forms

import (
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/types"
)

// RequestForm holds the user editable fields of a materials request.
// Quantity is kept as raw text so a bad value fails validation, not decoding.
type RequestForm struct {
	Date         string           `json:"date"`
	ItemName     string           `json:"item_name"`
	CategoryID   string           `json:"category_id"`
	Quantity     types.FlexString `json:"quantity"`
	Requester    string           `json:"requester"`
	Observations string           `json:"observations"`
}

// Validate checks, in order, item name, category, quantity and requester,
// stopping at the first failure.
func (f RequestForm) Validate() error {
	if strings.TrimSpace(f.ItemName) == "" {
		return types.Invalid("item_name", "item name is required")
	}
	if strings.TrimSpace(f.CategoryID) == "" {
		return types.Invalid("category_id", "a category must be selected")
	}
	if _, err := f.ParsedQuantity(); err != nil {
		return err
	}
	if strings.TrimSpace(f.Requester) == "" {
		return types.Invalid("requester", "requester is required")
	}
	if strings.TrimSpace(f.Date) != "" {
		if _, err := models.ParseDate(strings.TrimSpace(f.Date)); err != nil {
			return types.Invalid("date", "date must be YYYY-MM-DD")
		}
	}
	return nil
}

// ParsedQuantity returns the quantity as a positive integer.
func (f RequestForm) ParsedQuantity() (int, error) {
	s := strings.TrimSpace(f.Quantity.String())
	if s == "" {
		return 0, types.Invalid("quantity", "quantity is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, types.Invalid("quantity", "quantity must be a whole number")
	}
	if n <= 0 {
		return 0, types.Invalid("quantity", "quantity must be greater than zero")
	}
	return n, nil
}

// Apply copies the validated form onto r. An empty date keeps the date of r,
// or today for a new request. Status is left untouched.
func (f RequestForm) Apply(r *models.Request, now time.Time) error {
	if err := f.Validate(); err != nil {
		return err
	}
	qty, _ := f.ParsedQuantity()

	date := r.Date
	if s := strings.TrimSpace(f.Date); s != "" {
		date, _ = models.ParseDate(s)
	} else if date.Time().IsZero() {
		date = models.NewDate(now.UTC())
	}

	category := strings.TrimSpace(f.CategoryID)
	r.Date = date
	r.ItemName = strings.TrimSpace(f.ItemName)
	r.CategoryID = &category
	r.Quantity = qty
	r.Requester = strings.TrimSpace(f.Requester)
	r.Observations = nil
	if obs := strings.TrimSpace(f.Observations); obs != "" {
		r.Observations = &obs
	}
	return nil
}
