// Package cpu implements the processor and assembler for the LC-3 system.
//
// The CPU consists of a 16-bit program counter (PC), eight 16-bit
// general-purpose registers (R0-R7), a three-flag condition code register
// and a 65536 word memory. Each tick fetches the word at PC, increments PC,
// and dispatches on the top four bits of the word.
//
// The assembler is two pass. The first pass resolves labels to addresses
// and rewrites label operands as PC-relative immediates; the second pass
// encodes each statement. Operands may use compile-time $(...) expressions.
package cpu
