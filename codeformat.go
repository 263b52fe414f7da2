package errbridge

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeFormat is a set of flags describing how codes of a domain are rendered.
//
// A valid format is a single flag, or a decimal flag combined with the hex
// flag of the same width, in which case the code renders as "dec (hex)".
// FormatHexNoPad may be added to any format with a hex flag.
type CodeFormat uint32

const (
	FormatI32      CodeFormat = 1 << iota // 32-bit signed decimal
	FormatU32                             // 32-bit unsigned decimal
	FormatHex32                           // 32-bit hexadecimal, zero-padded to 8 digits
	FormatI16                             // 16-bit signed decimal
	FormatU16                             // 16-bit unsigned decimal
	FormatHex16                           // 16-bit hexadecimal, zero-padded to 4 digits
	FormatHexNoPad                        // omit hex zero padding
)

// MaxFormattedCodeLen is the longest string FormatCode produces.
const MaxFormattedCodeLen = 63

var codeFormatNames = []struct {
	flag CodeFormat
	name string
}{
	{FormatI32, "I32"},
	{FormatU32, "U32"},
	{FormatHex32, "Hex32"},
	{FormatI16, "I16"},
	{FormatU16, "U16"},
	{FormatHex16, "Hex16"},
	{FormatHexNoPad, "HexNoPad"},
}

// Valid reports whether f is an allowed flag combination.
func (f CodeFormat) Valid() bool {
	switch f &^ FormatHexNoPad {
	case FormatI32, FormatU32, FormatHex32,
		FormatI32 | FormatHex32, FormatU32 | FormatHex32,
		FormatI16, FormatU16, FormatHex16,
		FormatI16 | FormatHex16, FormatU16 | FormatHex16:
		return true
	}
	return false
}

// String returns the flag names joined by "|".
func (f CodeFormat) String() string {
	var names []string
	for _, n := range codeFormatNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
			f &^= n.flag
		}
	}
	if f != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(f), 16))
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

// ParseCodeFormat parses the output of CodeFormat.String, e.g. "I32|Hex32".
// Names are matched case-insensitively. The result is not validated.
func ParseCodeFormat(s string) (CodeFormat, error) {
	var f CodeFormat
	for part := range strings.SplitSeq(s, "|") {
		part = strings.TrimSpace(part)
		found := false
		for _, n := range codeFormatNames {
			if strings.EqualFold(part, n.name) {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown code format flag %q", part)
		}
	}
	return f, nil
}

// format renders code per f, returning the primary (decimal if present) and
// secondary (hex, only when decimal is also present) parts.
func (f CodeFormat) format(code int32) (primary, secondary string) {
	var dec, hex string
	switch {
	case f&FormatI32 != 0:
		dec = strconv.FormatInt(int64(code), 10)
	case f&FormatU32 != 0:
		dec = strconv.FormatUint(uint64(uint32(code)), 10)
	case f&FormatI16 != 0:
		dec = strconv.FormatInt(int64(int16(code)), 10)
	case f&FormatU16 != 0:
		dec = strconv.FormatUint(uint64(uint16(code)), 10)
	}

	noPad := f&FormatHexNoPad != 0
	switch {
	case f&FormatHex32 != 0 && noPad:
		hex = fmt.Sprintf("0x%x", uint32(code))
	case f&FormatHex32 != 0:
		hex = fmt.Sprintf("0x%08x", uint32(code))
	case f&FormatHex16 != 0 && noPad:
		hex = fmt.Sprintf("0x%x", uint16(code))
	case f&FormatHex16 != 0:
		hex = fmt.Sprintf("0x%04x", uint16(code))
	}

	if dec == "" {
		return hex, ""
	}
	return dec, hex
}

func formatCode(d *Domain, code int32, limit int) string {
	if d == nil {
		return "(no code)"
	}
	primary, secondary := d.format.format(code)
	if len(primary) > limit {
		return "???"
	}
	if secondary == "" {
		return primary
	}
	full := primary + " (" + secondary + ")"
	if len(full) > limit {
		return primary
	}
	return full
}
