package ingest

import (
	"strings"

	"github.com/ETAnderson/offersync/internal/domain"
)

type ValidationIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

func (r ValidationResult) IsValid() bool {
	return len(r.Issues) == 0
}

// ValidateOffer checks the semantic invariants of a normalized offer.
// Presence and type of raw fields are checked while parsing.
func ValidateOffer(o domain.Offer) ValidationResult {
	var res ValidationResult

	if o.ID <= 0 {
		addIssue(&res, "id", "invalid_id", "id must be a positive integer")
	}
	requireNonEmpty(&res, "name", o.Name)
	requireNonEmpty(&res, "imageDetail", o.Image)
	requireNonEmpty(&res, "qrCode", o.Normal.Code)

	if o.Normal.Price < 0 {
		addIssue(&res, "price", "negative_price", "price must not be negative")
	}

	if o.Big != nil {
		requireNonEmpty(&res, "bigQrCode", o.Big.Code)
		if o.Big.Price < 0 {
			addIssue(&res, "bigPrice", "negative_price", "price must not be negative")
		}
	}

	return res
}

func requireNonEmpty(res *ValidationResult, path string, v string) {
	if strings.TrimSpace(v) == "" {
		addIssue(res, path, "required", "field is required")
	}
}

func addIssue(res *ValidationResult, path string, code string, msg string) {
	res.Issues = append(res.Issues, ValidationIssue{
		Path:    path,
		Code:    code,
		Message: msg,
	})
}

func prefixIssues(prefix string, issues []ValidationIssue) []ValidationIssue {
	out := make([]ValidationIssue, 0, len(issues))
	for _, is := range issues {
		is.Path = prefix + "." + is.Path
		out = append(out, is)
	}
	return out
}
