// Package translate renders raw simulation values for display.
//
// Waveform dumps store a signal value as "<type> <bits>", for example
// "UInt<8> 00101010" or "Bool 1". The type prefix is optional. A Strategy
// decides how the bit string is shown: as an unsigned or two's-complement
// integer, as a boolean, or untouched. Bits other than 0 and 1 (x, z, ...)
// make the value undefined and it is shown as [Undefined].
package translate

import (
	"math/big"
	"strings"
)

// Undefined is shown for values that contain non-binary digits.
const Undefined = "UDF"

// Strategy selects how a bit string is interpreted.
type Strategy int

const (
	// Auto picks UInt, SInt or Bool from the type name.
	Auto Strategy = iota
	// UInt reads every value as an unsigned integer.
	UInt
	// None shows the bit string as it is.
	None
)

// ParseStrategy maps a config value to a Strategy. Unknown names select Auto.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(s) {
	case "uint":
		return UInt
	case "none", "raw":
		return None
	}
	return Auto
}

func (s Strategy) String() string {
	switch s {
	case UInt:
		return "uint"
	case None:
		return "none"
	}
	return "auto"
}

// Result is a translated value.
type Result struct {
	Type  string // empty when the raw value had no type prefix
	Value string
}

// Label formats the result as "<type> <value>", or just the value.
func (r Result) Label() string {
	if r.Type == "" {
		return r.Value
	}
	return r.Type + " " + r.Value
}

// Value translates one raw simulation value.
func Value(raw string, strategy Strategy) Result {
	var res Result
	bits := raw
	if typ, rest, ok := strings.Cut(raw, " "); ok {
		res.Type = typ
		// Only the first token after the type carries the value.
		bits, _, _ = strings.Cut(rest, " ")
	}

	switch strategy {
	case UInt:
		res.Value = Unsigned(bits)
	case None:
		res.Value = bits
	default:
		res.Value = auto(bits, res.Type)
	}
	return res
}

func auto(bits, typ string) string {
	switch {
	case typ == "":
		return bits
	case strings.Contains(typ, "UInt"):
		return Unsigned(bits)
	case strings.Contains(typ, "SInt"):
		return Signed(bits)
	case strings.Contains(typ, "Bool"), strings.Contains(typ, "logic"):
		return Bool(bits)
	}
	return bits
}

// Unsigned reads bits as a base-2 unsigned integer of any width.
func Unsigned(bits string) string {
	v, ok := parse(bits)
	if !ok {
		return Undefined
	}
	return v.String()
}

// Signed reads bits as a two's-complement integer of any width.
func Signed(bits string) string {
	v, ok := parse(bits)
	if !ok || bits == "" {
		return Undefined
	}
	if bits[0] == '1' {
		// v - 2^n
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(bits))))
	}
	return v.String()
}

// Bool reads a single bit.
func Bool(bits string) string {
	switch bits {
	case "1":
		return "true"
	case "0":
		return "false"
	}
	return Undefined
}

func parse(bits string) (*big.Int, bool) {
	v := new(big.Int)
	for _, ch := range bits {
		v.Lsh(v, 1)
		switch ch {
		case '1':
			v.SetBit(v, 0, 1)
		case '0':
		default:
			return nil, false
		}
	}
	return v, true
}
