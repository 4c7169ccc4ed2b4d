// Package asm provides the two-pass text assembler: it resolves labels and
// emits the ordered, label-free instruction strings the pipeline's fetch
// unit treats as its instruction cache.
//
// spec.md lists the assembler as an external collaborator of the
// out-of-order engine, not a component of it — this package exists only
// so the engine has a program to fetch, and deliberately stays a thin,
// two-pass text-to-text transform with no knowledge of pipeline timing.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/ooosim/isa"
)

// Program is the assembler's output: an ordered instruction cache and the
// label table used to resolve branch targets during assembly.
type Program struct {
	// Instructions is the ordered, 0-indexed instruction cache. Branch and
	// jump operands have already been rewritten from label names to
	// instruction indices.
	Instructions []string

	// Labels maps each label to the instruction index following it.
	Labels map[string]int
}

// line is one non-empty, comment-stripped source line together with the
// label (if any) that preceded it and its source line number, for error
// messages.
type line struct {
	label   string
	text    string
	lineNum int
}

// Assemble runs both assembly passes over src and returns the resulting
// Program. Assembly errors (spec.md section 7a: unknown opcode, malformed
// operand, unresolved label) are returned before any instruction runs.
func Assemble(src io.Reader) (*Program, error) {
	lines, err := lex(src)
	if err != nil {
		return nil, err
	}

	labels, err := resolveLabels(lines)
	if err != nil {
		return nil, err
	}

	instructions, err := rewriteOperands(lines, labels)
	if err != nil {
		return nil, err
	}

	return &Program{Instructions: instructions, Labels: labels}, nil
}

// lex performs the lexical pass: strip comments, split labels from their
// instruction, and drop blank lines. A bare "name:" line with nothing
// following it labels the next non-empty line.
func lex(src io.Reader) ([]line, error) {
	var (
		lines       []line
		pendingLbl  string
		instrsCount int
	)

	scanner := bufio.NewScanner(src)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()

		if idx := strings.IndexByte(raw, ';'); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		label := pendingLbl
		pendingLbl = ""

		if strings.HasSuffix(raw, ":") && !strings.ContainsAny(raw, " \t") {
			name := strings.TrimSuffix(raw, ":")
			if err := validateLabelName(name, lineNum); err != nil {
				return nil, err
			}
			if label != "" {
				return nil, fmt.Errorf("line %d: label %q immediately follows label %q with no instruction between them", lineNum, name, label)
			}
			pendingLbl = name
			continue
		}

		// A label may also prefix an instruction on the same line: "L: ADD ...".
		if idx := strings.IndexByte(raw, ':'); idx >= 0 && !strings.Contains(raw[:idx], " ") {
			name := raw[:idx]
			if err := validateLabelName(name, lineNum); err != nil {
				return nil, err
			}
			if label != "" {
				return nil, fmt.Errorf("line %d: label %q immediately follows label %q with no instruction between them", lineNum, name, label)
			}
			label = name
			raw = strings.TrimSpace(raw[idx+1:])
			if raw == "" {
				pendingLbl = label
				continue
			}
		}

		lines = append(lines, line{label: label, text: raw, lineNum: lineNum})
		instrsCount++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading assembly source: %w", err)
	}

	if pendingLbl != "" {
		return nil, fmt.Errorf("label %q at end of file has no following instruction", pendingLbl)
	}

	return lines, nil
}

func validateLabelName(name string, lineNum int) error {
	if name == "" {
		return fmt.Errorf("line %d: empty label", lineNum)
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("line %d: malformed label %q", lineNum, name)
		}
	}
	return nil
}

// resolveLabels builds the label -> instruction-index map (pass one).
func resolveLabels(lines []line) (map[string]int, error) {
	labels := make(map[string]int)
	for i, l := range lines {
		if l.label == "" {
			continue
		}
		if _, exists := labels[l.label]; exists {
			return nil, fmt.Errorf("line %d: label %q redefined", l.lineNum, l.label)
		}
		labels[l.label] = i
	}
	return labels, nil
}

// rewriteOperands performs pass two: replace branch/jump label operands
// with their resolved instruction index and emit the final instruction
// text. Every emitted line is then checked with isa.ParseText, so an
// unknown mnemonic or a malformed operand list is an assembly error.
func rewriteOperands(lines []line, labels map[string]int) ([]string, error) {
	out := make([]string, len(lines))
	for i, l := range lines {
		fields := strings.Fields(l.text)
		if len(fields) == 0 {
			return nil, fmt.Errorf("line %d: empty instruction", l.lineNum)
		}
		mnemonic := fields[0]
		text := l.text
		if isBranchMnemonic(mnemonic) {
			rewritten, err := rewriteBranchTarget(mnemonic, l.text, labels)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", l.lineNum, err)
			}
			text = rewritten
		}

		if _, err := isa.ParseText(i, text); err != nil {
			return nil, fmt.Errorf("line %d: %w", l.lineNum, err)
		}
		out[i] = text
	}
	return out, nil
}

func isBranchMnemonic(m string) bool {
	switch m {
	case "BEQ", "BNE", "BLT", "BGT", "JMP":
		return true
	}
	return false
}

// rewriteBranchTarget replaces a branch/jump instruction's final operand
// with its resolved instruction index, if the operand names a label
// rather than already being a numeric target.
func rewriteBranchTarget(mnemonic, text string, labels map[string]int) (string, error) {
	fields := strings.Fields(text)
	last := len(fields) - 1
	target := strings.TrimSuffix(fields[last], ",")

	if _, err := strconv.ParseInt(target, 10, 64); err == nil {
		return text, nil
	}

	idx, ok := labels[target]
	if !ok {
		return "", fmt.Errorf("unresolved label %q in %s", target, mnemonic)
	}

	fields[last] = strconv.Itoa(idx)
	return strings.Join(fields, " "), nil
}
