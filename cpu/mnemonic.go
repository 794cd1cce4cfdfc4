package cpu

import (
	"strings"
	"unicode"
)

// Mnemonic is an assembler statement keyword: one of the instruction
// mnemonics, a TRAP alias, or a pseudo-instruction.
type Mnemonic int

const (
	MN_INVALID = Mnemonic(iota)

	// Instructions
	MN_ADD
	MN_AND
	MN_BR
	MN_JMP
	MN_RET
	MN_JSR
	MN_JSRR
	MN_LD
	MN_LDI
	MN_LDR
	MN_LEA
	MN_NOT
	MN_RTI
	MN_ST
	MN_STI
	MN_STR
	MN_TRAP

	// Trap aliases
	MN_GETC
	MN_OUT
	MN_PUTS
	MN_IN
	MN_PUTSP
	MN_HALT

	// Pseudo-instructions
	MN_ORIG
	MN_FILL
	MN_BLKW
	MN_STRINGZ
	MN_END

	// Location-set extension
	MN_LOC
)

// mnemonicMap maps upper case keywords to mnemonics. Branches are
// handled by parseMnemonic.
var mnemonicMap = map[string]Mnemonic{
	"ADD":      MN_ADD,
	"AND":      MN_AND,
	"JMP":      MN_JMP,
	"RET":      MN_RET,
	"JSR":      MN_JSR,
	"JSRR":     MN_JSRR,
	"LD":       MN_LD,
	"LDI":      MN_LDI,
	"LDR":      MN_LDR,
	"LEA":      MN_LEA,
	"NOT":      MN_NOT,
	"RTI":      MN_RTI,
	"ST":       MN_ST,
	"STI":      MN_STI,
	"STR":      MN_STR,
	"TRAP":     MN_TRAP,
	"GETC":     MN_GETC,
	"OUT":      MN_OUT,
	"PUTS":     MN_PUTS,
	"IN":       MN_IN,
	"PUTSP":    MN_PUTSP,
	"HALT":     MN_HALT,
	".ORIG":    MN_ORIG,
	".FILL":    MN_FILL,
	".BLKW":    MN_BLKW,
	".STRINGZ": MN_STRINGZ,
	".END":     MN_END,
}

// trapAlias is the TRAP vector of each alias.
var trapAlias = map[Mnemonic]uint16{
	MN_GETC:  0x20,
	MN_OUT:   0x21,
	MN_PUTS:  0x22,
	MN_IN:    0x23,
	MN_PUTSP: 0x24,
	MN_HALT:  0x25,
}

// offsetBits is the width of the field a label operand lands in.
var offsetBits = map[Mnemonic]uint{
	MN_ADD:  5,
	MN_AND:  5,
	MN_BR:   9,
	MN_LD:   9,
	MN_LDI:  9,
	MN_LEA:  9,
	MN_ST:   9,
	MN_STI:  9,
	MN_LDR:  6,
	MN_STR:  6,
	MN_JSR:  11,
	MN_FILL: 16,
}

// parseMnemonic identifies a statement keyword. For branches, nzp holds
// the requested condition bits; a bare BR requests all three.
func parseMnemonic(word string) (mn Mnemonic, nzp uint16, err error) {
	if word == "loc" {
		mn = MN_LOC
		return
	}

	upper := strings.ToUpper(word)

	mn, ok := mnemonicMap[upper]
	if ok {
		return
	}

	cond, ok := strings.CutPrefix(upper, "BR")
	if !ok || strings.Trim(cond, "NZP") != "" {
		mn = MN_INVALID
		return
	}

	mn = MN_BR
	if len(cond) == 0 {
		nzp = CC_NEGATIVE | CC_ZERO | CC_POSITIVE
		return
	}

	count := 0
	if strings.Contains(cond, "N") {
		nzp |= CC_NEGATIVE
		count++
	}
	if strings.Contains(cond, "Z") {
		nzp |= CC_ZERO
		count++
	}
	if strings.Contains(cond, "P") {
		nzp |= CC_POSITIVE
		count++
	}

	if count != len(cond) {
		err = ErrBranchInvalid
	}

	return
}

// isMnemonic reports whether word is reserved as a statement keyword.
func isMnemonic(word string) bool {
	mn, _, err := parseMnemonic(word)
	return mn != MN_INVALID || err != nil
}

// isRegister reports whether word names R0 through R7.
func isRegister(word string) bool {
	return len(word) == 2 && (word[0] == 'R' || word[0] == 'r') && word[1] >= '0' && word[1] <= '7'
}

// parseRegister decodes a register operand.
func parseRegister(word string) (reg uint16, err error) {
	if !isRegister(word) {
		err = ErrRegisterInvalid(word)
		return
	}

	reg = uint16(word[1] - '0')
	return
}

// isIdentifier reports whether word is alphanumeric, allowing a single
// leading backslash.
func isIdentifier(word string) bool {
	if len(word) == 0 {
		return false
	}

	for n, c := range word {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			continue
		}
		if n == 0 && c == '\\' && len(word) > 1 {
			continue
		}
		return false
	}

	return true
}

// IsLabelValid reports whether label may be defined in the symbol table.
func IsLabelValid(label string) bool {
	return isIdentifier(label) && !isRegister(label) && !isMnemonic(label)
}

// isDelimiter separates operands.
func isDelimiter(c rune) bool {
	return c == ' ' || c == '\t' || c == ','
}

// splitMnemonic separates the keyword of a statement body from the text
// following its first space or tab.
func splitMnemonic(body string) (word string, rest string) {
	end := strings.IndexAny(body, " \t")
	if end < 0 {
		word = body
		return
	}

	word, rest = body[:end], body[end+1:]
	return
}
