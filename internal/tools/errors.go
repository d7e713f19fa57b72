package tools

import (
	"errors"
	"fmt"
)

// Kind classifies a tool execution failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindPathTraversal
	KindWritesDisabled
	KindCapabilityDenied
	KindIO
	KindNetwork
	KindArgumentParse
	KindScriptRuntime
	KindTimeout
	KindNotFound
)

// Sentinel errors, one per Kind. Match with errors.Is.
var (
	ErrPathTraversal    = errors.New("path escapes workspace root")
	ErrWritesDisabled   = errors.New("write helpers are disabled (set allow_tool_writes = true)")
	ErrCapabilityDenied = errors.New("capability denied")
	ErrIO               = errors.New("i/o error")
	ErrNetwork          = errors.New("network error")
	ErrArgumentParse    = errors.New("invalid arguments")
	ErrScriptRuntime    = errors.New("script error")
	ErrTimeout          = errors.New("script timed out")
	ErrNotFound         = errors.New("not found")
)

var kindNames = map[Kind]string{
	KindUnknown:          "Unknown",
	KindPathTraversal:    "PathTraversal",
	KindWritesDisabled:   "WritesDisabled",
	KindCapabilityDenied: "CapabilityDenied",
	KindIO:               "IoError",
	KindNetwork:          "NetworkError",
	KindArgumentParse:    "ArgumentParseError",
	KindScriptRuntime:    "ScriptRuntimeError",
	KindTimeout:          "Timeout",
	KindNotFound:         "NotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind by name in transcripts.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sentinel returns the sentinel error for a kind, or nil for KindUnknown.
func (k Kind) Sentinel() error {
	switch k {
	case KindPathTraversal:
		return ErrPathTraversal
	case KindWritesDisabled:
		return ErrWritesDisabled
	case KindCapabilityDenied:
		return ErrCapabilityDenied
	case KindIO:
		return ErrIO
	case KindNetwork:
		return ErrNetwork
	case KindArgumentParse:
		return ErrArgumentParse
	case KindScriptRuntime:
		return ErrScriptRuntime
	case KindTimeout:
		return ErrTimeout
	case KindNotFound:
		return ErrNotFound
	}
	return nil
}

// Error is the error value handed to scripts and callers. Op names the
// capability ("read_file", "http_request", ...), Path the subject if any.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// NewError builds an *Error. err may be nil.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds an *Error whose cause is a formatted message.
func Errorf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := ""
	if e.Op != "" {
		msg = e.Op
	}
	if e.Path != "" {
		if msg != "" {
			msg += " "
		}
		msg += e.Path
	}
	if msg != "" {
		msg += ": "
	}
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		msg += sentinel.Error()
		if e.Err != nil && !errors.Is(e.Err, sentinel) {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	if e.Err != nil {
		return msg + e.Err.Error()
	}
	return msg + "unknown error"
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf reports the kind of err. Errors outside the taxonomy are
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	for k := KindPathTraversal; k <= KindNotFound; k++ {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}
	return KindUnknown
}
