package rebuild

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is returned before a run starts when the metadata or
	// layer directory is unusable.
	ErrMissingInput = errors.New("missing input")
	// ErrOutputUnwritable is returned before a run starts when the output
	// directory cannot be created or written.
	ErrOutputUnwritable = errors.New("output directory is not writable")
	// ErrInvalidRequest reports a request with bad settings (size, fit, format).
	ErrInvalidRequest = errors.New("invalid rebuild request")
	// ErrRunAborted is returned with a partial Summary when the output
	// directory stopped being writable mid-run.
	ErrRunAborted = errors.New("rebuild run aborted")
	// ErrNoTraits fails a token whose metadata declares no usable traits.
	ErrNoTraits = errors.New("token declares no traits")
	// ErrNothingResolved fails a token none of whose traits resolved.
	ErrNothingResolved = errors.New("no trait resolved to a layer")
)

// WriteError reports an output image that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
