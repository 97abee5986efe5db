package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrMalformedPage = errors.New("malformed page")
	ErrNormalization = errors.New("normalization error")
	ErrPersistence   = errors.New("persistence error")
)

// Wrap builds an error message that includes resource context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, resource, operation, message string, err error) error {
	detail := buildDetail(resource, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Annotate prefixes err with resource context and keeps whatever marker err
// already carries.
func Annotate(resource, operation, message string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", buildDetail(resource, operation, message), err)
}

// Kind returns a short label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedPage):
		return "malformed_page"
	case errors.Is(err, ErrNormalization):
		return "normalization"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}

func buildDetail(resource, operation, message string) string {
	parts := make([]string, 0, 3)
	if resource = strings.TrimSpace(resource); resource != "" {
		parts = append(parts, resource)
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
