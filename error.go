package errbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/shiwano/errbridge/internal/alloc"
)

// Error is a refcounted error value with an optional domain and code, an
// optional cause and optional structured info.
//
// A nil *Error means "no error". The value returned by OutOfMemory is a
// static sentinel. All accessors are safe on both, and neither allocates.
//
// An Error is logically immutable once created. Ownership is explicit:
// functions that take ownership of an *Error consume it, and the owner of
// an *Error must eventually call Destroy. Copy and Destroy are not
// synchronized; an Error may be handed to another goroutine, but copies of
// it must not be taken or destroyed concurrently.
type Error struct {
	domain *Domain
	code   int32
	msg    string
	cause  *Error
	info   *InfoMap
	refs   int
	static bool
}

var (
	_ error          = (*Error)(nil)
	_ fmt.Formatter  = (*Error)(nil)
	_ json.Marshaler = (*Error)(nil)
	_ slog.LogValuer = (*Error)(nil)
)

var (
	errorSize = int(unsafe.Sizeof(Error{}))

	outOfMemory = &Error{
		domain: &criticalDomain,
		code:   CodeOutOfMemory,
		msg:    "Out of memory",
		static: true,
	}
)

func newError(d *Domain, code int32, cause *Error, msg string) *Error {
	if !alloc.Alloc(errorSize + len(msg)) {
		cause.Destroy()
		return outOfMemory
	}
	return &Error{
		domain: d,
		code:   code,
		msg:    strings.Clone(msg),
		cause:  cause,
		refs:   1,
	}
}

func staticError(code int32, msg string) *Error {
	return &Error{domain: &internalDomain, code: code, msg: msg, static: true}
}

// Copy adds a reference to e and returns it.
func (e *Error) Copy() *Error {
	if e != nil && !e.static {
		e.refs++
	}
	return e
}

// Destroy releases one reference to e. The last reference releases the
// message, the info map and, recursively, the cause.
func (e *Error) Destroy() {
	for e != nil && !e.static {
		e.refs--
		if e.refs > 0 {
			return
		}
		cause := e.cause
		e.info.Destroy()
		alloc.Free(errorSize + len(e.msg))
		e.cause, e.info = nil, nil
		e = cause
	}
}

// IsOutOfMemory reports whether e is the out-of-memory error.
func (e *Error) IsOutOfMemory() bool {
	return e == outOfMemory
}

// HasCode reports whether e carries a domain and code.
func (e *Error) HasCode() bool {
	return e != nil && e.domain != nil
}

// Domain returns the domain name, or "" if e has no code.
func (e *Error) Domain() string {
	if e == nil || e.domain == nil {
		return ""
	}
	return e.domain.name
}

// Code returns the code, or 0 if e has no code.
func (e *Error) Code() int32 {
	if e == nil {
		return 0
	}
	return e.code
}

// FormatCode renders the code according to the domain's format.
// It returns "(no code)" if e has no code.
func (e *Error) FormatCode() string {
	return e.FormatCodeLimit(MaxFormattedCodeLen)
}

// FormatCodeLimit is like FormatCode for a result of at most limit bytes.
// If only the decimal part fits, the hex part is left out; if the code does
// not fit at all, the result is "???".
func (e *Error) FormatCodeLimit(limit int) string {
	if e == nil {
		return "(no code)"
	}
	return formatCode(e.domain, e.code, limit)
}

// Message returns the message. It never returns an empty string.
func (e *Error) Message() string {
	switch {
	case e == nil:
		return "(no error)"
	case e.msg == "":
		return "(empty error message)"
	default:
		return e.msg
	}
}

// HasCause reports whether e wraps another error.
func (e *Error) HasCause() bool {
	return e != nil && e.cause != nil
}

// Cause returns the wrapped error. The result is borrowed; the caller must
// not destroy it.
func (e *Error) Cause() *Error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Chain returns an iterator over e and its causes, from e to the root cause.
func (e *Error) Chain() iter.Seq[*Error] {
	return func(yield func(*Error) bool) {
		for c := e; c != nil; c = c.cause {
			if !yield(c) {
				return
			}
		}
	}
}

// Root returns the innermost error of the chain.
func (e *Error) Root() *Error {
	var root *Error
	for c := range e.Chain() {
		root = c
	}
	return root
}

// HasInfo reports whether e carries a non-empty info map.
func (e *Error) HasInfo() bool {
	return e != nil && !e.info.IsEmpty()
}

// Info returns an immutable copy of the info map, or a new empty immutable
// map if e has none. The caller owns the result.
func (e *Error) Info() *InfoMap {
	if e.HasInfo() {
		return e.info.Copy()
	}
	m := NewInfoMap()
	m.MakeImmutable()
	return m
}

// Err returns e as an error, or nil if e is nil.
// Use it instead of assigning a *Error to an error variable, which would
// turn the no-error value into a non-nil interface.
func (e *Error) Err() error {
	if e == nil {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	return e.Message()
}

func (e *Error) Unwrap() error {
	if e == nil || e.cause == nil {
		return nil
	}
	return e.cause
}

// Is matches a target *Error with the same domain and code, or a target
// *Domain that e carries a code in.
func (e *Error) Is(target error) bool {
	if e == nil || e.domain == nil {
		return false
	}
	switch t := target.(type) {
	case *Error:
		if e == t {
			return true
		}
		return t != nil && t.domain != nil && e.domain.name == t.domain.name && e.code == t.code
	case *Domain:
		return t != nil && e.domain.name == t.name
	}
	return false
}

func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		switch {
		case s.Flag('+'):
			_, _ = fmt.Fprintf(s, "%s\n\n", e.Message())

			if e.HasCode() {
				_, _ = io.WriteString(s, "Domain:\n")
				_, _ = fmt.Fprintf(s, "\t%s\n", e.Domain())
				_, _ = io.WriteString(s, "Code:\n")
				_, _ = fmt.Fprintf(s, "\t%s\n", e.FormatCode())
			}

			if e.HasInfo() {
				_, _ = io.WriteString(s, "Info:\n")
				for k, v := range e.info.All() {
					_, _ = fmt.Fprintf(s, "\t%s: %v\n", k, v)
				}
			}

			if e.HasCause() {
				_, _ = io.WriteString(s, "Causes:\n")

				causeStr := strings.Trim(fmt.Sprintf("%+v", e.cause), "\n")

				for line := range strings.SplitSeq(causeStr, "\n") {
					_, _ = fmt.Fprintf(s, "\t%s\n", line)
				}
			}
		case s.Flag('#'):
			if e == nil {
				_, _ = io.WriteString(s, "(*errbridge.Error)(nil)")
				return
			}
			// Avoid infinite recursion in case someone does %#v on Error.
			type errorShadow Error
			tmp := errorShadow(*e)
			_, _ = fmt.Fprintf(s, "%#v", &tmp)
		default:
			_, _ = io.WriteString(s, e.Message())
		}
	case 's':
		_, _ = io.WriteString(s, e.Message())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Message())
	}
}

func (e *Error) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}

	var info json.RawMessage
	if e.HasInfo() {
		b, err := e.info.MarshalJSON()
		if err != nil {
			return nil, err
		}
		info = b
	}

	var causes []json.RawMessage
	if e.cause != nil {
		b, err := e.cause.MarshalJSON()
		if err != nil {
			return nil, err
		}
		causes = append(causes, b)
	}

	var code *int32
	if e.HasCode() {
		code = &e.code
	}

	return json.Marshal(struct {
		Message string            `json:"message"`
		Domain  string            `json:"domain,omitempty"`
		Code    *int32            `json:"code,omitempty"`
		Info    json.RawMessage   `json:"info,omitempty"`
		Causes  []json.RawMessage `json:"causes,omitempty"`
	}{
		Message: e.Message(),
		Domain:  e.Domain(),
		Code:    code,
		Info:    info,
		Causes:  causes,
	})
}

func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("message", e.Message())}
	if e.HasCode() {
		attrs = append(attrs,
			slog.String("domain", e.Domain()),
			slog.Int("code", int(e.code)),
		)
	}
	if e.HasInfo() {
		attrs = append(attrs, slog.Any("info", e.info))
	}
	if e.HasCause() {
		attrs = append(attrs, slog.Any("cause", e.cause))
	}
	return slog.GroupValue(attrs...)
}
