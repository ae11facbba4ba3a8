package apperrors

import "errors"

var (
	// Compiler-level errors. Fatal to the single compilation call, never retried.
	ErrInvalidColumn       = errors.New("invalid column identifier")
	ErrTypeMismatch        = errors.New("value type does not match operator")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrMissingColumn       = errors.New("aggregation requires a column")

	// Data-quality errors. Surfaced to the caller as guidance, never retried.
	ErrMissingRequiredColumns = errors.New("required RFM columns not detected")
	ErrInsufficientData       = errors.New("not enough customers for segmentation")
	ErrInsufficientCustomers  = errors.New("too few valid customers after parsing")

	// Infrastructure errors. Surfaced with the underlying message; the caller
	// may re-issue a fresh request but the engine never retries on its own.
	ErrWorkerTimeout = errors.New("clustering worker timed out")
	ErrWorkerError   = errors.New("clustering worker failed")
)
