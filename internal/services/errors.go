package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrQuota         = errors.New("quota exhausted")
	ErrEmptyResponse = errors.New("empty model response")
	ErrPersistence   = errors.New("persistence error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether an error carries the transient marker. Transient
// failures have already been retried by the gateway before they surface here.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// UserHint maps a pipeline error to an actionable message suffix shown to the
// user. Quota errors point at plan and billing, overload errors suggest a wait,
// everything else surfaces as-is.
func UserHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuota):
		return "API quota exhausted; check your plan and billing details, then resume"
	case errors.Is(err, ErrTransient):
		return "the model service is overloaded; wait a moment and resume"
	case errors.Is(err, ErrEmptyResponse):
		return "the model returned no usable content; the source may have tripped safety filters"
	case errors.Is(err, ErrPersistence):
		return "saving the project failed; in-memory work is preserved, check storage and save again"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
