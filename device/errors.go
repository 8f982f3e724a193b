package device

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the dispatch pipeline
type Kind int

const (
	KindUnknown Kind = iota
	NoPlatformFound
	NoDeviceFound
	ContextCreationFailed
	SourceUnreadable
	CompilationFailed
	EntryPointNotFound
	QueueCreationFailed
	BufferAllocationFailed
	ArgumentBindingFailed
	EnqueueFailed
	ReadBackFailed
	InvalidInput
	ResultMismatch
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	NoPlatformFound:        "NoPlatformFound",
	NoDeviceFound:          "NoDeviceFound",
	ContextCreationFailed:  "ContextCreationFailed",
	SourceUnreadable:       "SourceUnreadable",
	CompilationFailed:      "CompilationFailed",
	EntryPointNotFound:     "EntryPointNotFound",
	QueueCreationFailed:    "QueueCreationFailed",
	BufferAllocationFailed: "BufferAllocationFailed",
	ArgumentBindingFailed:  "ArgumentBindingFailed",
	EnqueueFailed:          "EnqueueFailed",
	ReadBackFailed:         "ReadBackFailed",
	InvalidInput:           "InvalidInput",
	ResultMismatch:         "ResultMismatch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure. Op names the operation that failed (for
// example "clCreateKernel" or "read source"), Err is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrNoPlatformFound        = &Error{Kind: NoPlatformFound}
	ErrNoDeviceFound          = &Error{Kind: NoDeviceFound}
	ErrContextCreationFailed  = &Error{Kind: ContextCreationFailed}
	ErrSourceUnreadable       = &Error{Kind: SourceUnreadable}
	ErrCompilationFailed      = &Error{Kind: CompilationFailed}
	ErrEntryPointNotFound     = &Error{Kind: EntryPointNotFound}
	ErrQueueCreationFailed    = &Error{Kind: QueueCreationFailed}
	ErrBufferAllocationFailed = &Error{Kind: BufferAllocationFailed}
	ErrArgumentBindingFailed  = &Error{Kind: ArgumentBindingFailed}
	ErrEnqueueFailed          = &Error{Kind: EnqueueFailed}
	ErrReadBackFailed         = &Error{Kind: ReadBackFailed}
	ErrInvalidInput           = &Error{Kind: InvalidInput}
	ErrResultMismatch         = &Error{Kind: ResultMismatch}
)

// Errorf builds a classified error from a format string
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err as kind unless a backend already classified it.
// A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
