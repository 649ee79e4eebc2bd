package geneset

import "fmt"

// MalformedInputError reports membership input that cannot be normalized:
// a missing required column or key, an empty identifier, or an empty gene set.
type MalformedInputError struct {
	Message string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed gene set input: %s", e.Message)
}

func malformed(format string, args ...any) error {
	return &MalformedInputError{Message: fmt.Sprintf(format, args...)}
}

// CollisionError reports gene sets present in both sides of a merge with
// different membership.
type CollisionError struct {
	Keys []Key
}

func (e *CollisionError) Error() string {
	if len(e.Keys) == 1 {
		return fmt.Sprintf("gene set collision: %s exists with different membership", e.Keys[0])
	}
	return fmt.Sprintf("gene set collision: %d gene sets exist with different membership (first: %s)",
		len(e.Keys), e.Keys[0])
}
