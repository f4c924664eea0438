package corpus

import "errors"

var (
	// ErrInvalidRange means the caller asked for min_length > max_length.
	ErrInvalidRange = errors.New("min_length must not be greater than max_length")
	// ErrRangeUnsatisfiable means the requested lengths cannot match any cached record.
	ErrRangeUnsatisfiable = errors.New("requested length range is outside the corpus")
)
