package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// DateLayout is the wire and display format of Date.
const DateLayout = "2006-01-02"

// Date is a wrapper around gorm.io/datatypes.Date that serializes as YYYY-MM-DD.
type Date struct {
	datatypes.Date
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// Time returns the underlying time value.
func (d Date) Time() time.Time {
	return time.Time(d.Date)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Value promotes the embedded Date's Value method
func (d Date) Value() (driver.Value, error) {
	return d.Date.Value()
}

// Scan accepts driver times as well as the text some drivers return for date columns.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	}
	if err := d.Date.Scan(value); err != nil {
		return err
	}
	*d = NewDate(d.Time())
	return nil
}

func (d *Date) scanText(s string) error {
	if len(s) < len(DateLayout) {
		return fmt.Errorf("invalid date %q", s)
	}
	parsed, err := ParseDate(s[:len(DateLayout)])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDBDataType maps Date to a plain DATE column on every driver.
func (Date) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return "DATE"
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
