package schema

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a key is not present in a collection.
	ErrNotFound = errors.New("object not found")

	// ErrDuplicateKey is returned when inserting an object whose key is
	// already present in the collection.
	ErrDuplicateKey = errors.New("duplicate object key")

	// ErrUnclassifiableRow is returned when a catalog row carries a kind
	// code no known object variant matches. This signals a version gap
	// with the live catalog and is never ignorable.
	ErrUnclassifiableRow = errors.New("unclassifiable catalog row")

	// ErrMalformedSpec is returned when a specification entry is missing
	// required structure, has the wrong shape, or an empty body.
	ErrMalformedSpec = errors.New("malformed specification")

	// ErrUnresolvedReference is returned when a cross-collection lookup
	// fails during linking. This always indicates an ingestion or
	// version-handling bug, not a user error.
	ErrUnresolvedReference = errors.New("unresolved object reference")

	// ErrAmbiguousRename is returned when an oldname does not resolve to
	// an existing object in the current state.
	ErrAmbiguousRename = errors.New("previous name not found")

	// ErrNoDiff is returned when the current and desired catalogs already
	// match and there is nothing to plan.
	ErrNoDiff = errors.New("no differences found")
)
