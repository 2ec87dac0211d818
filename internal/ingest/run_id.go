package ingest

import "github.com/google/uuid"

// NewRunID creates a time-ordered run id suitable for logs and the export signature.
// Format: "run_" + UUIDv7
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return "run_" + id.String(), nil
}
