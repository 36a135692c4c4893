package pose

import (
	"errors"
	"fmt"
)

//ErrInvalidImage marks a precondition violation: geometry that would make the coordinate math undefined
var ErrInvalidImage = errors.New("invalid image geometry")

//ErrInference marks a failure of the inference engine itself, as opposed to a frame without detections
var ErrInference = errors.New("inference failed")

//ErrMalformedOutput is returned when the engine output does not have the expected row layout. It wraps ErrInference.
var ErrMalformedOutput = fmt.Errorf("malformed output: %w", ErrInference)
