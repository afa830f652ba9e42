package forms

import (
	"strings"

	"github.com/localnerve/maintdb/internal/types"
)

// CategoryForm names an item category.
type CategoryForm struct {
	Name string `json:"name"`
}

func (f CategoryForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return types.Invalid("name", "category name is required")
	}
	return nil
}

// StatusTypeForm describes a request status type.
type StatusTypeForm struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Color string `json:"color"`
}

func (f StatusTypeForm) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return types.Invalid("name", "status name is required")
	case strings.TrimSpace(f.Label) == "":
		return types.Invalid("label", "status label is required")
	case strings.TrimSpace(f.Color) == "":
		return types.Invalid("color", "status color is required")
	}
	return nil
}

// StatusChangeForm carries the target status of a request.
type StatusChangeForm struct {
	StatusID string `json:"status"`
}

func (f StatusChangeForm) Validate() error {
	if strings.TrimSpace(f.StatusID) == "" {
		return types.Invalid("status", "status is required")
	}
	return nil
}
