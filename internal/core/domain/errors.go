package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks corrupt or unparseable content. Recovered locally
	// as empty text; the task fails without crashing the consumer loop.
	ErrExtraction = errors.New("extraction failed")

	// ErrClassification marks a model misuse: predicting before train/load,
	// or an unknown model family. Never silently defaulted.
	ErrClassification = errors.New("classification error")

	// ErrStoreWrite marks a failed write to one of the persistence stores.
	ErrStoreWrite = errors.New("store write failed")

	// ErrBroker marks queue publish/consume failures. At submit time it
	// triggers the synchronous fallback path.
	ErrBroker = errors.New("broker unavailable")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
