package cpu

import (
	"iter"
	"slices"
)

// Statement is the encoding of a single source line.
type Statement struct {
	LineNo int      // Source line number.
	Ip     uint16   // Address of the first code.
	Words  []string // Mnemonic and operands, after label substitution.
	Codes  []Code   // Encoded words.
}

// Program is an assembled image.
type Program struct {
	Start      uint16            // Address of the first .ORIG or loc.
	Statements []Statement       // Encoded statements, in source order.
	Label      map[string]uint16 // Symbol table.
}

// Debug locates the statement that emitted an address.
type Debug struct {
	*Statement
	Index int // Index of the code within the statement.
}

// Debug returns the statement that emitted the code at ip. The Statement
// is nil if no statement did.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, st := range slices.Backward(prog.Statements) {
		if int(ip) >= int(st.Ip) && int(ip) < int(st.Ip)+len(st.Codes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(ip - st.Ip),
			}
			break
		}
	}

	return
}

// Codes iterates over every emitted word and its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(ip uint16, code Code) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				if !yield(st.Ip+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Binary returns the memory image from address 0 through the highest
// emitted address. Unemitted words are zero; a later statement overwrites
// an earlier one at the same address.
func (prog *Program) Binary() (words []uint16) {
	size := 0
	for ip := range prog.Codes() {
		size = max(size, int(ip)+1)
	}

	if size == 0 {
		return
	}

	words = make([]uint16, size)
	for ip, code := range prog.Codes() {
		words[ip] = uint16(code)
	}

	return
}
