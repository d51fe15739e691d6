package node

import "fmt"

// ErrorKind classifies the failure modes spec.md §7 names.
type ErrorKind int

const (
	ErrKindAlreadyExists ErrorKind = iota
	ErrKindOutOfMemory
	ErrKindInvalidState
	ErrKindNotFound
	ErrKindTooMany
	ErrKindAsync
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindAlreadyExists:
		return "already exists"
	case ErrKindOutOfMemory:
		return "out of memory"
	case ErrKindInvalidState:
		return "invalid state"
	case ErrKindNotFound:
		return "not found"
	case ErrKindTooMany:
		return "too many"
	case ErrKindAsync:
		return "async command failed"
	default:
		return "unknown"
	}
}

// Error is the node package's error type: a kind plus an optional wrapped
// cause, matching the way the teacher repo's config/deployer errors carry
// both a sentinel kind and a message (cp-supervisor/config, cp-node/node).
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func errAlreadyExists(name string) error {
	return newError(ErrKindAlreadyExists, fmt.Sprintf("node %q is already registered", name), nil)
}

func errInvalidState(target State) error {
	return newError(ErrKindInvalidState, fmt.Sprintf("cannot transition to %s", target), nil)
}

func errAsync(msg string) error {
	return newError(ErrKindAsync, msg, nil)
}

// stateChangeErr formats the error update_state(ERROR, msg) carries when an
// async command completion reports failure (spec.md §8 scenario 3).
func stateChangeErr(res int) error {
	return fmt.Errorf("error changing node state: %d", res)
}
