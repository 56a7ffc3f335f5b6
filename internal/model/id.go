package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID is returned for identifiers that are not well-formed UUIDs.
var ErrInvalidID = errors.New("invalid identifier")

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID validates and normalizes a resource identifier taken from a URL.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidID
	}
	return id.String(), nil
}
