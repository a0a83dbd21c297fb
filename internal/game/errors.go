package game

import (
	"errors"
	"fmt"

	"ninjanight/internal/store"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomNotExist        = errors.New("room no longer exists")
	ErrInsufficientCards   = errors.New("not enough cards in the catalog")
	ErrInvalidPlayerCount  = errors.New("player count must be positive")
	ErrInvalidData         = errors.New("invalid setup data")
	ErrEmptyInvitationCode = errors.New("invitation code is empty")
	ErrWrongPassword       = errors.New("wrong room password")
	ErrNotJoined           = errors.New("not joined to a room")
	ErrAlreadyJoined       = errors.New("already joined to a room")
	ErrNotReady            = errors.New("players are not ready to start")
)

// Kind classifies a failure for callers that only care how to react to it.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindCapacity
	KindPrecondition
	KindTransient
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindPrecondition:
		return "precondition"
	case KindTransient:
		return "transient"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with op and kind. A nil err stays nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap wraps err with op, deriving the kind from err itself.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}

// FromStore maps a store failure onto the lobby taxonomy: a missing document
// is NotFound, anything else is a transient I/O failure.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if store.IsNotFound(err) {
		return E(KindNotFound, op, err)
	}
	return E(KindTransient, op, err)
}

// KindOf reports the kind of err. Unclassified errors count as transient.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomNotExist), store.IsNotFound(err):
		return KindNotFound
	case errors.Is(err, ErrRoomFull):
		return KindCapacity
	case errors.Is(err, ErrInsufficientCards), errors.Is(err, ErrInvalidData),
		errors.Is(err, ErrNotJoined), errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrNotReady):
		return KindPrecondition
	case errors.Is(err, ErrInvalidPlayerCount), errors.Is(err, ErrEmptyInvitationCode),
		errors.Is(err, ErrWrongPassword), errors.Is(err, store.ErrInvalidPath):
		return KindInvalidInput
	}
	return KindTransient
}
