package data

import (
	_ "embed"
)

// SeedStatusTypes lists the request status types created on an empty database.
//
//go:embed seed/status_types.json
var SeedStatusTypes []byte
