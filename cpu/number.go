package cpu

import (
	"strconv"
	"strings"
)

// parseLiteral returns the unmasked value of an immediate literal.
func parseLiteral(number string) (parsed uint64, err error) {
	if len(number) < 2 || number[0] != '#' {
		err = ErrParseNumber(number)
		return
	}

	switch c := number[1]; {
	case c == '$':
		parsed, err = strconv.ParseUint(number[2:], 16, 32)
	case c == 'b':
		parsed, err = strconv.ParseUint(number[2:], 2, 32)
	case c == '-' || (c >= '0' && c <= '9'):
		var v64 int64
		v64, err = strconv.ParseInt(number[1:], 10, 32)
		parsed = uint64(uint32(int32(v64)))
	default:
		err = ErrParseNumber(number)
	}
	if err != nil {
		err = ErrParseNumber(number)
	}

	return
}

// ParseNumber parses an immediate literal and masks it to a field of the
// given width.
//
// Accepted forms are '#$<hex>', '#b<binary>', '#-<decimal>' and '#<decimal>'.
// Truncated reports that a non-negative literal did not fit the field; the
// masked value is still returned, as legacy programs rely on truncation.
func ParseNumber(number string, bits uint) (value uint16, truncated bool, err error) {
	parsed, err := parseLiteral(number)
	if err != nil {
		return
	}

	mask := uint64(1)<<bits - 1
	truncated = parsed > mask && number[1] != '-'
	value = uint16(parsed & mask)

	return
}

// parseNumber is ParseNumber, recording truncation as a warning.
func (asm *Assembler) parseNumber(number string, bits uint) (value uint16, err error) {
	if !strings.HasPrefix(number, "#") && isIdentifier(number) && !isRegister(number) {
		err = ErrLabelMissing(number)
		return
	}

	value, truncated, err := ParseNumber(number, bits)
	if err != nil {
		return
	}

	if truncated {
		parsed, _ := parseLiteral(number)
		asm.warn(ErrWidth{Literal: number, Value: uint32(parsed), Bits: bits})
	}

	return
}
