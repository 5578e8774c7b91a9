package emtf

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrInvalidConfig is returned when a configuration fails validation.
// It is fatal: the track finder must not be started with it.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// ErrMissingInput is returned when an enabled subsystem has no input
// collection in the event.
type ErrMissingInput struct {
	Subsystem Subsystem
	Label     string
	Event     uint64
}

func (e *ErrMissingInput) Error() string {
	return fmt.Sprintf("event %d: missing %v input %q", e.Event, e.Subsystem, e.Label)
}

// ErrMalformedPrimitive describes why a single raw primitive was skipped.
type ErrMalformedPrimitive struct {
	Subsystem Subsystem
	Field     string
	Value     int
}

func (e *ErrMalformedPrimitive) Error() string {
	return fmt.Sprintf("malformed %v primitive: %s = %d out of range", e.Subsystem, e.Field, e.Value)
}

// ErrPtLUT represents an error loading or validating a pt lookup table.
type ErrPtLUT struct {
	Filename string
	Reason   string
}

func (e *ErrPtLUT) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("pt LUT: %s", e.Reason)
	}
	return fmt.Sprintf("pt LUT %q: %s", e.Filename, e.Reason)
}

// ErrUnknownForest is returned when no decision-tree forest is registered
// for a model version.
type ErrUnknownForest struct {
	Version int
	Dir     string
}

func (e *ErrUnknownForest) Error() string {
	return fmt.Sprintf("no forest for pt assignment version %d (%q)", e.Version, e.Dir)
}
