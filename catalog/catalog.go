// Package catalog loads error domains from a YAML file and registers them.
//
//	domains:
//	  - name: disk
//	    format: I32|Hex32
//	    description: Block device errors
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shiwano/errbridge"
)

type (
	// Catalog is a validated list of domains.
	Catalog struct {
		Domains []Entry `yaml:"domains"`
	}

	// Entry describes one domain.
	Entry struct {
		Name        string `yaml:"name"`
		Format      string `yaml:"format"`
		Description string `yaml:"description,omitempty"`

		format errbridge.CodeFormat
	}
)

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CodeFormat returns the parsed format of e.
func (e Entry) CodeFormat() errbridge.CodeFormat {
	return e.format
}

func (c *Catalog) validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Domains))
	for i := range c.Domains {
		e := &c.Domains[i]
		if err := validateName(e.Name); err != nil {
			errs = append(errs, fmt.Errorf("domain %d: %w", i, err))
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("domain %q: duplicate", e.Name))
			continue
		}
		seen[e.Name] = true

		f, err := errbridge.ParseCodeFormat(e.Format)
		if err != nil {
			errs = append(errs, fmt.Errorf("domain %q: %w", e.Name, err))
			continue
		}
		if !f.Valid() {
			errs = append(errs, fmt.Errorf("domain %q: invalid format %s", e.Name, f))
			continue
		}
		e.format = f
	}
	return errors.Join(errs...)
}

func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case len(name) > errbridge.MaxDomainNameLen:
		return fmt.Errorf("name longer than %d bytes", errbridge.MaxDomainNameLen)
	case name == errbridge.CriticalDomain || name == errbridge.InternalDomain:
		return fmt.Errorf("name %q is reserved", name)
	}
	for i := range len(name) {
		if name[i] < ' ' || name[i] > '~' {
			return fmt.Errorf("name %q has a disallowed character at %d", name, i)
		}
	}
	return nil
}

// Register registers every domain of c. Domains that are already registered
// with the same format are accepted.
//
// Failures do not stop the remaining registrations. Each failure becomes one
// link of the returned chain, the most recent outermost, under a summary
// error in the internal domain carrying the code of the first failure. The
// caller owns the result.
func (c *Catalog) Register() *errbridge.Error {
	var failures *errbridge.Error
	var firstCode int32
	n := 0
	for _, e := range c.Domains {
		err := errbridge.RegisterDomain(e.Name, e.format)
		if err == nil {
			continue
		}
		if err.Code() == errbridge.CodeDomainAlreadyExists {
			if d, ok := errbridge.LookupDomain(e.Name); ok && d.Format() == e.format {
				err.Destroy()
				continue
			}
		}
		if err.IsOutOfMemory() {
			failures.Destroy()
			return err
		}
		if n == 0 {
			firstCode = err.Code()
		}
		n++
		failures = errbridge.WrapWithCode(failures, err.Domain(), err.Code(), err.Message())
		err.Destroy()
	}
	if failures == nil {
		return nil
	}
	return errbridge.WrapWithCode(failures, errbridge.InternalDomain, firstCode,
		fmt.Sprintf("%d catalog domain(s) could not be registered", n))
}
