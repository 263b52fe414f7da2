package errbridge_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/shiwano/errbridge"
)

func TestError_NoError(t *testing.T) {
	var err *errbridge.Error

	if err.Message() != "(no error)" {
		t.Errorf("want %q, got %q", "(no error)", err.Message())
	}
	if err.Domain() != "" || err.Code() != 0 || err.HasCode() {
		t.Error("want no domain and no code")
	}
	if err.FormatCode() != "(no code)" {
		t.Errorf("want %q, got %q", "(no code)", err.FormatCode())
	}
	if err.HasCause() || err.Cause() != nil || err.HasInfo() {
		t.Error("want no cause and no info")
	}
	if err.Err() != nil {
		t.Error("want nil error interface")
	}
	if err.Copy() != nil {
		t.Error("want nil copy")
	}
	err.Destroy()

	info := err.Info()
	defer info.Destroy()
	if !info.IsEmpty() || info.IsMutable() {
		t.Error("want empty immutable info")
	}
}

func TestError_FormatCode(t *testing.T) {
	registerDomain(t, "disk", errbridge.FormatI32|errbridge.FormatHex32)
	registerDomain(t, "test.format-u16", errbridge.FormatU16|errbridge.FormatHex16|errbridge.FormatHexNoPad)
	registerDomain(t, "test.format-hex", errbridge.FormatHex32)

	tests := []struct {
		domain string
		code   int32
		want   string
	}{
		{"disk", -1, "-1 (0xffffffff)"},
		{"disk", 0, "0 (0x00000000)"},
		{"disk", 255, "255 (0x000000ff)"},
		{"test.format-u16", -1, "65535 (0xffff)"},
		{"test.format-u16", 10, "10 (0xa)"},
		{"test.format-hex", 16, "0x00000010"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %d", tt.domain, tt.code), func(t *testing.T) {
			err := errbridge.NewWithCode(tt.domain, tt.code, "boom")
			defer err.Destroy()

			if got := err.FormatCode(); got != tt.want {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("drops hex part when it does not fit", func(t *testing.T) {
		err := errbridge.NewWithCode("disk", -1, "boom")
		defer err.Destroy()

		if got := err.FormatCodeLimit(10); got != "-1" {
			t.Errorf("want %q, got %q", "-1", got)
		}
		if got := err.FormatCodeLimit(1); got != "???" {
			t.Errorf("want %q, got %q", "???", got)
		}
	})
}

func TestError_Copy(t *testing.T) {
	err := errbridge.New("shared")
	cp := err.Copy()

	if cp != err {
		t.Fatal("want copy to be the same object")
	}

	err.Destroy()
	if cp.Message() != "shared" {
		t.Errorf("want copy to stay alive, got %q", cp.Message())
	}
	cp.Destroy()
}

func TestError_Chain(t *testing.T) {
	root := errbridge.New("root")
	middle := errbridge.Wrap(root, "middle")
	outer := errbridge.Wrap(middle, "outer")
	defer outer.Destroy()

	var msgs []string
	for e := range outer.Chain() {
		msgs = append(msgs, e.Message())
	}
	if got := strings.Join(msgs, ","); got != "outer,middle,root" {
		t.Errorf("want chain %q, got %q", "outer,middle,root", got)
	}
	if outer.Root() != root {
		t.Error("want root to be the innermost error")
	}
	if !errors.Is(outer.Err(), root) {
		t.Error("want errors.Is to find the root")
	}
}

func TestError_Is(t *testing.T) {
	registerDomain(t, "test.is", errbridge.FormatI32)
	d, ok := errbridge.LookupDomain("test.is")
	if !ok {
		t.Fatal("want domain registered")
	}

	t.Run("matches domain and code", func(t *testing.T) {
		err := errbridge.Wrap(errbridge.NewWithCode("test.is", 5, "inner"), "outer")
		defer err.Destroy()

		target := errbridge.NewWithCode("test.is", 5, "other message")
		defer target.Destroy()

		if !errors.Is(err, target) {
			t.Error("want match on domain and code")
		}
		if !errors.Is(err, d) || !d.Is(err) {
			t.Error("want match on domain")
		}
	})

	t.Run("matches static targets", func(t *testing.T) {
		err := errbridge.RegisterDomain("", errbridge.FormatI32)
		defer err.Destroy()

		if !errors.Is(err, errbridge.ErrDomainNameEmpty) {
			t.Errorf("want DomainNameEmpty, got %v", err)
		}
		if errors.Is(err, errbridge.ErrDomainNameInvalid) {
			t.Error("want no match on other code")
		}
	})

	t.Run("uncoded errors match only themselves", func(t *testing.T) {
		a := errbridge.New("a")
		defer a.Destroy()
		b := errbridge.New("a")
		defer b.Destroy()

		if errors.Is(a, b) {
			t.Error("want no match between distinct uncoded errors")
		}
		if !errors.Is(a, a) {
			t.Error("want match on identity")
		}
	})

	t.Run("domains compare by name", func(t *testing.T) {
		registerDomain(t, "test.is.other", errbridge.FormatI32)
		other, _ := errbridge.LookupDomain("test.is.other")

		if errors.Is(d, other) || errors.Is(other, d) {
			t.Error("want no match between distinct domains")
		}
		if !errors.Is(d, d) || !d.Is(d) {
			t.Error("want domain to match itself")
		}
		coded := errbridge.NewWithCode("test.is", 1, "x")
		defer coded.Destroy()
		if other.Is(coded.Err()) {
			t.Error("want no match on error in other domain")
		}
	})

	t.Run("domain matches through foreign wrappers", func(t *testing.T) {
		outer := errbridge.Wrap(errbridge.NewWithCode("test.is", 7, "inner"), "outer")
		defer outer.Destroy()
		err := fmt.Errorf("context: %w", outer.Err())

		if !d.Is(err) {
			t.Error("want match on wrapped cause")
		}
	})

	t.Run("errors.As", func(t *testing.T) {
		err := fmt.Errorf("context: %w", errbridge.New("inner").Err())
		var target *errbridge.Error
		if !errors.As(err, &target) {
			t.Fatal("want errors.As to find *Error")
		}
		defer target.Destroy()
		if target.Message() != "inner" {
			t.Errorf("want %q, got %q", "inner", target.Message())
		}
	})
}

func TestError_Format(t *testing.T) {
	registerDomain(t, "test.format", errbridge.FormatI32|errbridge.FormatHex32)

	info := errbridge.NewInfoMap()
	info.SetString("path", "/var/db")
	err := errbridge.WrapWithInfo(errbridge.New("disk full"), "test.format", 28, info, "write failed")
	defer err.Destroy()

	t.Run("verbs", func(t *testing.T) {
		if got := fmt.Sprintf("%v", err); got != "write failed" {
			t.Errorf("want %q, got %q", "write failed", got)
		}
		if got := fmt.Sprintf("%s", err); got != "write failed" {
			t.Errorf("want %q, got %q", "write failed", got)
		}
		if got := fmt.Sprintf("%q", err); got != `"write failed"` {
			t.Errorf("want %q, got %q", `"write failed"`, got)
		}
	})

	t.Run("plus flag", func(t *testing.T) {
		got := fmt.Sprintf("%+v", err)
		want := "write failed\n\n" +
			"Domain:\n\ttest.format\n" +
			"Code:\n\t28 (0x0000001c)\n" +
			"Info:\n\tpath: /var/db\n" +
			"Causes:\n\tdisk full\n"
		if got != want {
			t.Errorf("want %q, got %q", want, got)
		}
	})

	t.Run("sharp flag", func(t *testing.T) {
		got := fmt.Sprintf("%#v", err)
		if !strings.Contains(got, "write failed") {
			t.Errorf("want message in %q", got)
		}
	})
}

func TestError_MarshalJSON(t *testing.T) {
	registerDomain(t, "test.json", errbridge.FormatI32)

	info := errbridge.NewInfoMap()
	info.SetI64("attempt", 3)
	err := errbridge.WrapWithInfo(errbridge.New("root"), "test.json", 4, info, "outer")
	defer err.Destroy()

	b, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("want no error, got %v", jerr)
	}

	var got struct {
		Message string           `json:"message"`
		Domain  string           `json:"domain"`
		Code    int32            `json:"code"`
		Info    map[string]any   `json:"info"`
		Causes  []map[string]any `json:"causes"`
	}
	if jerr := json.Unmarshal(b, &got); jerr != nil {
		t.Fatalf("want valid json, got %v", jerr)
	}
	if got.Message != "outer" || got.Domain != "test.json" || got.Code != 4 {
		t.Errorf("want outer/test.json/4, got %+v", got)
	}
	if got.Info["attempt"] != float64(3) {
		t.Errorf("want attempt 3, got %v", got.Info["attempt"])
	}
	if len(got.Causes) != 1 || got.Causes[0]["message"] != "root" {
		t.Errorf("want root cause, got %v", got.Causes)
	}
}

func TestError_LogValue(t *testing.T) {
	registerDomain(t, "test.log", errbridge.FormatI32)

	err := errbridge.Wrap(errbridge.NewWithCode("test.log", 2, "inner"), "outer")
	defer err.Destroy()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Error("failed", "err", err)

	out := buf.String()
	for _, want := range []string{"err.message=outer", "err.cause.domain=test.log", "err.cause.code=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("want %q in %q", want, out)
		}
	}
}
