package errbridge

import (
	"strings"
	"sync"

	"github.com/shiwano/errbridge/growarray"
	"github.com/shiwano/errbridge/internal/alloc"
)

// MaxDomainNameLen is the longest allowed domain name in bytes.
const MaxDomainNameLen = 63

// The process-wide domain registry. Built-in domains are not stored in the
// array. The lock is never held while an *Error is being built.
var domains struct {
	once sync.Once
	mu   sync.Mutex
	list *growarray.Array[*Domain]
}

func initDomains() {
	domains.once.Do(func() {
		list, err := growarray.New[*Domain]()
		if err != nil {
			panic(err)
		}
		domains.list = list
	})
}

// RegisterDomain registers a domain so that errors can carry codes in it.
// It returns nil on success. Otherwise it returns one of:
//   - DomainNameEmpty, DomainNameTooLong or DomainNameInvalid for a malformed name
//   - CodeFormatInvalid for a bad flag combination
//   - DomainAlreadyExists if name is taken, including by a built-in domain
//   - the out-of-memory error
func RegisterDomain(name string, format CodeFormat) *Error {
	if err := checkDomainName(name); err != nil {
		return err
	}
	if !format.Valid() {
		return newInternalError(CodeCodeFormatInvalid, "Invalid error code format")
	}
	if builtinDomain(name) != nil {
		return domainExistsError(name)
	}

	initDomains()
	exists, ok := insertDomain(name, format)
	switch {
	case exists:
		return domainExistsError(name)
	case !ok:
		return OutOfMemory()
	}
	return nil
}

// LookupDomain returns the domain registered under name.
func LookupDomain(name string) (*Domain, bool) {
	if d := builtinDomain(name); d != nil {
		return d, true
	}

	initDomains()
	domains.mu.Lock()
	defer domains.mu.Unlock()

	pos, ok := growarray.Search(domains.list, name, compareDomainName)
	if !ok {
		return nil, false
	}
	return *domains.list.At(pos), true
}

// Domains returns the registered domains sorted by name. Built-in domains
// are not included.
func Domains() []*Domain {
	initDomains()
	domains.mu.Lock()
	defer domains.mu.Unlock()

	out := make([]*Domain, 0, domains.list.Len())
	for _, d := range domains.list.All() {
		out = append(out, d)
	}
	return out
}

// UnregisterAllDomains removes every registered domain. It exists for tests.
//
// Errors created in a removed domain keep a reference to a domain that no
// longer exists. Calling this while such errors are alive is a programming
// error: their domain lookups, comparisons and formatting become unreliable.
func UnregisterAllDomains() {
	initDomains()
	domains.mu.Lock()
	defer domains.mu.Unlock()

	for _, d := range domains.list.All() {
		alloc.Free(len(d.name))
	}
	domains.list.Destroy()
}

func insertDomain(name string, format CodeFormat) (exists, ok bool) {
	domains.mu.Lock()
	defer domains.mu.Unlock()

	pos, found := growarray.Search(domains.list, name, compareDomainName)
	if found {
		return true, false
	}
	if !alloc.Alloc(len(name)) {
		return false, false
	}
	d := &Domain{name: strings.Clone(name), format: format}
	if !domains.list.Insert(pos, d) {
		alloc.Free(len(name))
		return false, false
	}
	return false, true
}

func builtinDomain(name string) *Domain {
	switch name {
	case CriticalDomain:
		return &criticalDomain
	case InternalDomain:
		return &internalDomain
	}
	return nil
}

func checkDomainName(name string) *Error {
	if name == "" {
		return newInternalError(CodeDomainNameEmpty, "Empty error domain name")
	}
	if len(name) > MaxDomainNameLen {
		return newInternalError(CodeDomainNameTooLong,
			"Error domain name exceeding 63 characters: "+name[:MaxDomainNameLen]+"...")
	}
	for i := range len(name) {
		if name[i] < ' ' || name[i] > '~' {
			return newInternalError(CodeDomainNameInvalid, "Error domain containing disallowed characters")
		}
	}
	return nil
}

func domainExistsError(name string) *Error {
	return newInternalError(CodeDomainAlreadyExists, "Cannot register already registered domain: "+name)
}

func compareDomainName(d *Domain, name string) int {
	return strings.Compare(d.name, name)
}
