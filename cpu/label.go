package cpu

import (
	"errors"
	"fmt"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezrec/lc3sim/internal"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates, visible to $(...) expressions.
var sysEquate = map[string]int{
	"MEMORY_SIZE": MEMORY_SIZE,
	"TRAP_GETC":   0x20,
	"TRAP_OUT":    0x21,
	"TRAP_PUTS":   0x22,
	"TRAP_IN":     0x23,
	"TRAP_PUTSP":  0x24,
	"TRAP_HALT":   0x25,
}

var (
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
)

// splitLabel separates the 'label:' prefix of a line from its body.
// Indented lines have no label.
func splitLabel(text string) (label string, body string, err error) {
	if hasIndent(text) {
		body = strings.TrimSpace(text)
		return
	}

	label, body, ok := strings.Cut(text, ":")
	if !ok {
		body = strings.TrimSpace(text)
		err = ErrLabelColon
		return
	}

	body = strings.TrimSpace(body)
	if len(label) == 0 {
		err = ErrLabelInvalid(label)
	}

	return
}

// parseLoc decodes the strict 'loc #<address>' form.
func parseLoc(body string) (ip uint16, err error) {
	words := strings.Split(body, " ")
	if len(words) != 2 || words[0] != "loc" || !strings.HasPrefix(words[1], "#") {
		err = ErrLocSyntax
		return
	}

	ip, _, err = ParseNumber(words[1], 16)
	return
}

// locate applies the location counter rule to a statement body, returning
// the address of the next statement.
//
// 'loc' and '.ORIG' move the counter; '.END' and empty bodies leave it
// alone; every other statement advances it by one.
func locate(ip uint16, body string) (next uint16, err error) {
	words := strings.FieldsFunc(body, isDelimiter)
	if len(words) == 0 {
		next = ip
		return
	}

	mn, _, _ := parseMnemonic(words[0])
	switch mn {
	case MN_LOC:
		next, err = parseLoc(body)
		if err != nil {
			next = ip
		}
	case MN_ORIG:
		if len(words) != 2 {
			next = ip
			err = ErrArity{Mnemonic: words[0], Want: 1, Have: len(words) - 1}
			return
		}
		next, _, err = ParseNumber(words[1], 16)
		if err != nil {
			next = ip
		}
	case MN_END:
		next = ip
	default:
		next = ip + 1
	}

	return
}

// ResolveLabels builds the symbol table, mapping each label to the address
// of the statement it prefixes.
//
// All offending lines are reported, joined in a single error.
func (asm *Assembler) ResolveLabels(lines []Line) (labels map[string]uint16, err error) {
	labels = map[string]uint16{}

	var errs []error
	var ip uint16

	for _, line := range lines {
		if isLineEmpty(line.Text) {
			continue
		}

		label, body, lerr := splitLabel(line.Text)
		switch {
		case lerr != nil:
			errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: lerr})
		case len(label) == 0:
		case !IsLabelValid(label):
			errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: ErrLabelInvalid(label)})
		default:
			if _, ok := labels[label]; ok {
				errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: ErrLabelDuplicate})
				break
			}
			if asm.Verbose {
				log.Printf("%v: label %v = x%04X", line.LineNo, label, ip)
			}
			labels[label] = ip
		}

		ip, lerr = locate(ip, body)
		if lerr != nil {
			errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: lerr})
		}
	}

	if len(errs) > 0 {
		labels = nil
		err = errors.Join(errs...)
	}

	return
}

// formatOffset renders a PC-relative offset as an immediate literal.
func formatOffset(offset int) string {
	if offset < 0 {
		return fmt.Sprintf("#%d", offset)
	}
	return fmt.Sprintf("#$%X", offset)
}

// SubstituteLabels rewrites label operands as PC-relative immediates.
//
// A label L used by the statement at A becomes the offset L-(A+1). Only
// whole operands match; mnemonics and .STRINGZ text are left untouched.
func (asm *Assembler) SubstituteLabels(lines []Line, labels map[string]uint16) (substituted []Line, err error) {
	substituted = make([]Line, 0, len(lines))

	var errs []error
	var ip uint16

	for _, line := range lines {
		asm.lineNo, asm.line = line.LineNo, line.Text

		label, body, _ := splitLabel(line.Text)

		body, lerr := asm.expand(body, ip, labels)
		if lerr != nil {
			errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: lerr})
		}

		body = asm.substitute(body, ip, labels)

		if hasIndent(line.Text) {
			line.Text = "\t" + body
		} else {
			line.Text = label + ": " + body
		}
		substituted = append(substituted, line)

		ip, _ = locate(ip, body)
	}

	if len(errs) > 0 {
		substituted = nil
		err = errors.Join(errs...)
	}

	return
}

// substitute replaces the label operands of a single statement body.
func (asm *Assembler) substitute(body string, ip uint16, labels map[string]uint16) string {
	word, rest := splitMnemonic(body)

	mn, _, _ := parseMnemonic(word)
	// TRAP vectors such as 'x25' are never label references.
	if mn == MN_STRINGZ || mn == MN_LOC || mn == MN_TRAP || len(rest) == 0 {
		return body
	}

	var out strings.Builder
	out.WriteString(body[:len(body)-len(rest)])

	for len(rest) > 0 {
		end := strings.IndexFunc(rest, isDelimiter)
		if end == 0 {
			out.WriteByte(rest[0])
			rest = rest[1:]
			continue
		}
		if end < 0 {
			end = len(rest)
		}

		token := rest[:end]
		rest = rest[end:]

		addr, ok := labels[token]
		if !ok {
			out.WriteString(token)
			continue
		}

		offset := int(addr) - (int(ip) + 1)
		if bits, ok := offsetBits[mn]; ok {
			limit := 1 << (bits - 1)
			if offset < -limit || offset >= limit {
				asm.warn(ErrOffsetRange{Label: token, Offset: offset, Bits: bits})
			}
		}

		if asm.Verbose {
			log.Printf("%v: %v => %v", asm.lineNo, token, formatOffset(offset))
		}

		out.WriteString(formatOffset(offset))
	}

	return out.String()
}

// expand evaluates character literals and $(...) expressions.
func (asm *Assembler) expand(body string, ip uint16, labels map[string]uint16) (expanded string, err error) {
	word, _ := splitMnemonic(body)
	if mn, _, _ := parseMnemonic(word); mn == MN_STRINGZ {
		expanded = body
		return
	}

	expanded = reCharacter.ReplaceAllStringFunc(body, func(match string) string {
		if err != nil {
			return match
		}
		var r rune
		r, _, _, err = strconv.UnquoteChar(match[1:len(match)-1], '\'')
		return fmt.Sprintf("#%d", r)
	})
	if err != nil {
		return
	}

	expanded = reExpression.ReplaceAllStringFunc(expanded, func(match string) string {
		if err != nil {
			return match
		}
		var value int64
		value, err = asm.parenEval(match[2:len(match)-1], ip, labels)
		return fmt.Sprintf("#%d", value)
	})

	return
}

// parenEval evaluates a starlark expression over the predefines, the
// symbol table and the current address 'PC'.
func (asm *Assembler) parenEval(expr string, ip uint16, labels map[string]uint16) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}

	for key, v := range internal.IterSeq2Concat(maps.All(sysEquate), maps.All(asm.predefine)) {
		pred[key] = starlark.MakeInt(v)
	}
	for key, addr := range labels {
		pred[key] = starlark.MakeInt(int(addr))
	}
	pred["PC"] = starlark.MakeInt(int(ip))

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}

	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	return
}
