package ingest

import (
	"fmt"
	"strings"

	"github.com/ETAnderson/offersync/internal/domain"
)

// TransportError means the upstream could not be reached or did not answer with JSON.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed envelope whose code/msg is not a success.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream replied with an error (code: %d, message: %s)", e.Code, e.Msg)
}

// MalformedResponseError means the envelope or the payload lacks expected fields.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}

// MalformedOfferError carries every issue found in the offers of one source.
type MalformedOfferError struct {
	Source domain.SourceKind
	Issues []ValidationIssue
}

func (e *MalformedOfferError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Path+": "+is.Code)
	}
	return fmt.Sprintf("malformed %s offers: %s", e.Source, strings.Join(parts, ", "))
}
