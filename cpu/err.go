package cpu

import (
	"errors"

	"github.com/ezrec/lc3sim/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalt          = errors.New(f("halted by trap"))
	ErrUnimplemented = errors.New(f("opcode not implemented"))
	ErrOpcodeDecode  = errors.New(f("decode"))

	// Assembler errors
	ErrLabelColon         = errors.New(f("label not followed by ':'"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabels             = errors.New(f("could not parse labels"))
	ErrLocSyntax          = errors.New(f("loc syntax, want 'loc #<address>'"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("missing arguments"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrBranchInvalid      = errors.New(f("branch condition invalid"))
	ErrStringInvalid      = errors.New(f("string literal invalid"))
	ErrMemoryOverflow     = errors.New(f("program extends past the end of memory"))
)

// ErrArity is a statement with the wrong number of operands.
type ErrArity struct {
	Mnemonic string
	Want     int
	Have     int
}

func (err ErrArity) Error() string {
	return f("%v takes %d operands, found %d", err.Mnemonic, err.Want, err.Have)
}

func (err ErrArity) Unwrap() error {
	if err.Have < err.Want {
		return ErrOpcodeMissing
	}
	return ErrOpcodeExtraArgs
}

// ErrLabelInvalid is an identifier that cannot be used as a label.
type ErrLabelInvalid string

func (el ErrLabelInvalid) Error() string {
	return f("label %v is not in valid format", string(el))
}

// ErrLabelMissing is an operand naming a label that was never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrRegisterInvalid is an operand that is not R0 through R7.
type ErrRegisterInvalid string

func (er ErrRegisterInvalid) Error() string {
	return f("register %v does not exist", string(er))
}

// ErrOpcode is a runtime failure executing a word.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%04x %v", uint16(eo), Code(eo).Opcode().String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrSyntax locates an assembler diagnostic in the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseNumber is a malformed immediate literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression is a $(...) expression that did not yield an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrWidth warns that a literal was truncated to fit its field.
type ErrWidth struct {
	Literal string
	Value   uint32
	Bits    uint
}

func (err ErrWidth) Error() string {
	return f("number %v (parsed to %d) is too large for %d bits, this can cause unexpected behavior", err.Literal, err.Value, err.Bits)
}

// ErrOffsetRange warns that a label is too far away for the field
// referencing it.
type ErrOffsetRange struct {
	Label  string
	Offset int
	Bits   uint
}

func (err ErrOffsetRange) Error() string {
	return f("label %v is %d words away, beyond a %d bit offset", err.Label, err.Offset, err.Bits)
}
