/*
Package errbridge is a rich error propagation library for code that must keep
working when memory runs out and that crosses boundaries where only an
integer error code survives.

An error carries a message, an optional domain and code, an optional map of
typed diagnostic values, and an optional cause. Creating an error never
fails: when the allocation cannot be made, the static out-of-memory error is
returned instead, and a nil *Error means "no error".

# Domains

Codes are only meaningful inside a domain. Register each domain once at
startup together with the way its codes should be rendered.

	func init() {
		if err := errbridge.RegisterDomain("disk", errbridge.FormatI32|errbridge.FormatHex32); err != nil {
			panic(err)
		}
	}

The built-in domains "errbridge" and "errbridge.critical" are always
available.

# Creating and Wrapping

	func save(path string) *errbridge.Error {
		if err := write(path); err != nil {
			info := errbridge.NewInfoMap()
			info.SetString("path", path)
			return errbridge.WrapWithInfo(err, "disk", 28, info, "Cannot save document")
		}
		return nil
	}

Constructors take ownership of the cause and the info map. The caller owns
the returned error and releases it with Destroy. Copy adds a reference.

# Inspection

Every accessor accepts a nil receiver. Chain iterates the error and its
causes outermost first, and Err converts an *Error to the error interface so
that errors.Is and errors.As work with both *Error and *Domain targets.

	if errors.Is(err.Err(), errbridge.ErrDomainNotRegistered) {
		// ...
	}

The %+v verb prints the message, domain, code, info and causes. *Error and
*InfoMap implement slog.LogValuer and json.Marshaler.

# Integer Codes

Package codemap exchanges an *Error for an int32 code and back, scoped per
logical thread carried in a context.Context. Package catalog registers
domains from a YAML file.
*/
package errbridge
