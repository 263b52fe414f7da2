package errbridge

// Built-in domains. They always exist and cannot be registered.
const (
	// CriticalDomain holds the out-of-memory error.
	CriticalDomain = "errbridge.critical"
	// InternalDomain holds errors reported by this package itself.
	InternalDomain = "errbridge"
)

// Codes in CriticalDomain.
const (
	CodeOutOfMemory int32 = -1
)

// Codes in InternalDomain.
const (
	CodeNullArgument int32 = 101

	CodeDomainNameEmpty     int32 = 201
	CodeDomainNameTooLong   int32 = 202
	CodeDomainNameInvalid   int32 = 203
	CodeDomainAlreadyExists int32 = 204
	CodeDomainNotRegistered int32 = 205

	CodeMapInvalidConfig int32 = 301
	CodeMapInvalidCode   int32 = 302
	CodeMapFailure       int32 = 303

	CodeCodeFormatInvalid int32 = 401
)

// Targets for errors.Is. They match any error with the same domain and code,
// and are never destroyed.
var (
	ErrNullArgument        = staticError(CodeNullArgument, "null argument")
	ErrDomainNameEmpty     = staticError(CodeDomainNameEmpty, "domain name empty")
	ErrDomainNameTooLong   = staticError(CodeDomainNameTooLong, "domain name too long")
	ErrDomainNameInvalid   = staticError(CodeDomainNameInvalid, "domain name invalid")
	ErrDomainAlreadyExists = staticError(CodeDomainAlreadyExists, "domain already exists")
	ErrDomainNotRegistered = staticError(CodeDomainNotRegistered, "domain not registered")
	ErrMapInvalidConfig    = staticError(CodeMapInvalidConfig, "map invalid config")
	ErrMapInvalidCode      = staticError(CodeMapInvalidCode, "map invalid code")
	ErrMapFailure          = staticError(CodeMapFailure, "map failure")
	ErrCodeFormatInvalid   = staticError(CodeCodeFormatInvalid, "code format invalid")
)

// New creates an error with no domain and no code.
func New(msg string) *Error {
	return newError(nil, 0, nil, msg)
}

// NewWithCode creates an error with a code in the named domain.
//
// An empty domain name stands for no domain: with a zero code it behaves
// like New, and with a non-zero code it yields a NullArgument error. An
// unknown domain yields a DomainNotRegistered error.
func NewWithCode(domain string, code int32, msg string) *Error {
	return newErrorInDomain(domain, code, nil, msg)
}

// NewWithInfo is like NewWithCode and additionally attaches an immutable
// copy of info. It takes ownership of info in all cases.
//
// The info is attached only when the result carries exactly the requested
// domain and code; it is discarded if creation failed. An empty info map is
// treated as absent.
func NewWithInfo(domain string, code int32, info *InfoMap, msg string) *Error {
	return attachInfo(newErrorInDomain(domain, code, nil, msg), domain, code, info)
}

// Wrap creates an error with no code whose cause is cause.
//
// Wrap takes ownership of cause. If the new error cannot be allocated, cause
// is destroyed and the out-of-memory error is returned.
func Wrap(cause *Error, msg string) *Error {
	return newError(nil, 0, cause, msg)
}

// WrapWithCode is like NewWithCode and sets cause as the cause of the
// result. It takes ownership of cause.
func WrapWithCode(cause *Error, domain string, code int32, msg string) *Error {
	return newErrorInDomain(domain, code, cause, msg)
}

// WrapWithInfo is like NewWithInfo and sets cause as the cause of the
// result. It takes ownership of cause and info.
func WrapWithInfo(cause *Error, domain string, code int32, info *InfoMap, msg string) *Error {
	return attachInfo(newErrorInDomain(domain, code, cause, msg), domain, code, info)
}

// OutOfMemory returns the out-of-memory error. It never allocates, and
// Copy and Destroy are no-ops on it.
func OutOfMemory() *Error {
	return outOfMemory
}

func newErrorInDomain(domain string, code int32, cause *Error, msg string) *Error {
	if domain == "" {
		if code == 0 {
			return newError(nil, 0, cause, msg)
		}
		return newError(&internalDomain, CodeNullArgument, cause, "Null error domain")
	}
	if err := checkDomainName(domain); err != nil {
		return attachCause(err, cause)
	}
	d, ok := LookupDomain(domain)
	if !ok {
		return newError(&internalDomain, CodeDomainNotRegistered, cause, "Error domain not registered: "+domain)
	}
	return newError(d, code, cause, msg)
}

func newInternalError(code int32, msg string) *Error {
	return newError(&internalDomain, code, nil, msg)
}

func attachCause(err, cause *Error) *Error {
	if err.IsOutOfMemory() {
		cause.Destroy()
		return err
	}
	err.cause = cause
	return err
}

func attachInfo(err *Error, domain string, code int32, info *InfoMap) *Error {
	defer info.Destroy()

	if domain == "" || info.IsEmpty() {
		return err
	}
	if err.IsOutOfMemory() || err.domain == nil || err.domain.name != domain || err.code != code {
		return err
	}
	err.info = info.ImmutableCopy()
	return err
}
