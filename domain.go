package errbridge

import (
	"errors"
	"fmt"
)

// Domain is a registered namespace for error codes, together with the rule
// for rendering its codes. Domains are created by RegisterDomain and live
// until UnregisterAllDomains.
type Domain struct {
	name    string
	format  CodeFormat
	builtin bool
}

var (
	criticalDomain = Domain{name: CriticalDomain, format: FormatI32, builtin: true}
	internalDomain = Domain{name: InternalDomain, format: FormatI32, builtin: true}
)

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.name
}

// Format returns the code format of the domain.
func (d *Domain) Format() CodeFormat {
	return d.format
}

// IsBuiltin reports whether d is one of the domains that exist without
// registration.
func (d *Domain) IsBuiltin() bool {
	return d.builtin
}

// Error returns the domain name.
// This makes Domain usable as an errors.Is target that matches every error
// carrying a code in the domain.
func (d *Domain) Error() string {
	return d.name
}

// FormatCode renders code according to the domain's format.
func (d *Domain) FormatCode(code int32) string {
	return formatCode(d, code, MaxFormattedCodeLen)
}

// New creates an error with the given code in this domain.
func (d *Domain) New(code int32, msg string) *Error {
	return newError(d, code, nil, msg)
}

// Errorf creates an error with the given code and a formatted message.
func (d *Domain) Errorf(code int32, format string, args ...any) *Error {
	return newError(d, code, nil, fmt.Sprintf(format, args...))
}

// NewWithInfo creates an error with the given code and an immutable copy of
// info. It takes ownership of info.
func (d *Domain) NewWithInfo(code int32, info *InfoMap, msg string) *Error {
	return attachInfo(newError(d, code, nil, msg), d.name, code, info)
}

// Wrap creates an error with the given code whose cause is cause.
// It takes ownership of cause.
func (d *Domain) Wrap(cause *Error, code int32, msg string) *Error {
	return newError(d, code, cause, msg)
}

// Is reports whether err carries a code in this domain, or is a domain of
// the same name. It walks err's chain without calling back into errors.Is,
// so two domains can be compared with errors.Is.
func (d *Domain) Is(err error) bool {
	if t, ok := err.(*Domain); ok {
		return t != nil && t.name == d.name
	}
	var e *Error
	for errors.As(err, &e) {
		if e.Is(d) {
			return true
		}
		err = e.Unwrap()
	}
	return false
}
