package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiwano/errbridge"
	"github.com/shiwano/errbridge/catalog"
)

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := catalog.Parse([]byte(`
domains:
  - name: disk
    format: I32|Hex32
    description: Block device errors
  - name: net
    format: hex16
`))
		require.NoError(t, err)
		require.Len(t, c.Domains, 2)
		require.Equal(t, "disk", c.Domains[0].Name)
		require.Equal(t, errbridge.FormatI32|errbridge.FormatHex32, c.Domains[0].CodeFormat())
		require.Equal(t, "Block device errors", c.Domains[0].Description)
		require.Equal(t, errbridge.FormatHex16, c.Domains[1].CodeFormat())
	})

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty name", "domains: [{name: '', format: I32}]", "empty name"},
		{"reserved name", "domains: [{name: errbridge, format: I32}]", "reserved"},
		{"control character", "domains: [{name: \"a\\tb\", format: I32}]", "disallowed character"},
		{"duplicate", "domains: [{name: a, format: I32}, {name: a, format: U32}]", "duplicate"},
		{"unknown flag", "domains: [{name: a, format: Octal}]", "Octal"},
		{"no format", "domains: [{name: a, format: ''}]", "domain \"a\""},
		{"malformed yaml", "domains: {", "decode catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.yaml))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains:\n  - name: cache\n    format: U16\n"), 0o644))

	c, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, c.Domains, 1)

	_, err = catalog.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCatalog_Register(t *testing.T) {
	t.Cleanup(errbridge.UnregisterAllDomains)

	c, err := catalog.Parse([]byte(`
domains:
  - name: catalog.disk
    format: I32|Hex32
  - name: catalog.net
    format: U32
`))
	require.NoError(t, err)

	require.Nil(t, c.Register())
	d, ok := errbridge.LookupDomain("catalog.disk")
	require.True(t, ok)
	require.Equal(t, errbridge.FormatI32|errbridge.FormatHex32, d.Format())

	t.Run("same format is accepted again", func(t *testing.T) {
		require.Nil(t, c.Register())
	})

	t.Run("format conflicts are collected", func(t *testing.T) {
		conflict, err := catalog.Parse([]byte(`
domains:
  - name: catalog.disk
    format: U32
  - name: catalog.fresh
    format: I32
  - name: catalog.net
    format: Hex32
`))
		require.NoError(t, err)

		rerr := conflict.Register()
		defer rerr.Destroy()
		require.NotNil(t, rerr)
		require.Equal(t, errbridge.InternalDomain, rerr.Domain())
		require.Equal(t, errbridge.CodeDomainAlreadyExists, rerr.Code())
		require.Equal(t, "2 catalog domain(s) could not be registered", rerr.Message())

		links := 0
		for e := range rerr.Cause().Chain() {
			require.Equal(t, errbridge.CodeDomainAlreadyExists, e.Code())
			links++
		}
		require.Equal(t, 2, links)

		_, ok := errbridge.LookupDomain("catalog.fresh")
		require.True(t, ok)
	})

	t.Run("summary carries the first failure code", func(t *testing.T) {
		unchecked := &catalog.Catalog{Domains: []catalog.Entry{
			{Name: "catalog.noformat"},
			{Name: ""},
		}}

		rerr := unchecked.Register()
		defer rerr.Destroy()
		require.NotNil(t, rerr)
		require.Equal(t, errbridge.CodeCodeFormatInvalid, rerr.Code())
		require.ErrorIs(t, rerr.Err(), errbridge.ErrCodeFormatInvalid)
		require.ErrorIs(t, rerr.Err(), errbridge.ErrDomainNameEmpty)
		require.NotErrorIs(t, rerr.Err(), errbridge.ErrDomainAlreadyExists)
	})
}
