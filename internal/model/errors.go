package model

import "errors"

// Error kinds per the error taxonomy: ConfigError, InvalidState,
// PatternError, CapabilityError, Timeout. Callers match with errors.Is
// against the sentinels below, or errors.As against *KindError for detail.

type ErrorKind string

const (
	KindConfigError     ErrorKind = "ConfigError"
	KindInvalidState    ErrorKind = "InvalidState"
	KindPatternError    ErrorKind = "PatternError"
	KindCapabilityError ErrorKind = "CapabilityError"
	KindTimeout         ErrorKind = "Timeout"
)

// KindError wraps an underlying error with its taxonomy kind.
type KindError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *KindError) Error() string {
	if e.Op == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Op + ": " + e.Err.Error()
}

func (e *KindError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind, so
// errors.Is(err, ErrInvalidState) works against a wrapped *KindError.
func (e *KindError) Is(target error) bool {
	switch e.Kind {
	case KindConfigError:
		return target == ErrConfigError
	case KindInvalidState:
		return target == ErrInvalidState
	case KindPatternError:
		return target == ErrPatternError
	case KindCapabilityError:
		return target == ErrCapabilityError
	case KindTimeout:
		return target == ErrTimeout
	}
	return false
}

var (
	ErrConfigError     = errors.New("config error")
	ErrInvalidState    = errors.New("invalid state")
	ErrPatternError    = errors.New("pattern error")
	ErrCapabilityError = errors.New("capability error")
	ErrTimeout         = errors.New("timeout")
)

func NewConfigError(op string, err error) error {
	return &KindError{Kind: KindConfigError, Op: op, Err: err}
}

func NewInvalidState(op string, err error) error {
	return &KindError{Kind: KindInvalidState, Op: op, Err: err}
}

func NewPatternError(op string, err error) error {
	return &KindError{Kind: KindPatternError, Op: op, Err: err}
}

func NewCapabilityError(op string, err error) error {
	return &KindError{Kind: KindCapabilityError, Op: op, Err: err}
}

func NewTimeoutError(op string, err error) error {
	return &KindError{Kind: KindTimeout, Op: op, Err: err}
}
