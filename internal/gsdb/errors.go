package gsdb

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

// Error kinds raised by the packages the GeneSetDb composes.
type (
	MalformedInputError     = geneset.MalformedInputError
	CollisionError          = geneset.CollisionError
	UnknownMetadataKeyError = collection.UnknownMetadataKeyError
	ValidationError         = collection.ValidationError
)

var (
	// ErrGeneSetNotFound is returned for a (collection, name) not in the db.
	ErrGeneSetNotFound = errors.New("gene set not found")
	// ErrNotConformed is returned by operations that need a conformed db.
	ErrNotConformed = errors.New("gene set db is not conformed")
	// ErrInvalidBounds is returned for conform size bounds that cannot hold.
	ErrInvalidBounds = errors.New("invalid gene set size bounds")
	// ErrOutOfBounds is returned when activating a gene set whose conformed
	// size is outside the conform bounds.
	ErrOutOfBounds = errors.New("gene set size outside conform bounds")
)

// DimensionMismatchError reports a boolean subset vector whose length does
// not match the number of gene sets.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("subset vector has length %d, want %d (one per gene set)", e.Got, e.Want)
}

func notFound(collection, name string) error {
	return fmt.Errorf("%w: %s", ErrGeneSetNotFound, geneset.Key{Collection: collection, Name: name})
}
