package collection

import "fmt"

// UnknownMetadataKeyError reports a write to a (collection, variable) pair
// that does not exist when adding was not allowed.
type UnknownMetadataKeyError struct {
	Collection string
	Variable   string
}

func (e *UnknownMetadataKeyError) Error() string {
	return fmt.Sprintf("unknown metadata key %q for collection %q (use allow-add to create it)",
		e.Variable, e.Collection)
}

// ValidationError reports a metadata value rejected by a validator.
type ValidationError struct {
	Collection string
	Variable   string
	Err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s/%s: %v", e.Collection, e.Variable, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
