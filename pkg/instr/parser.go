package instr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reactorcore/pkg/geom"
	"regexp"
	"strconv"
	"strings"
)

// Step is one reboot instruction: switch every cell of Box on or off.
type Step struct {
	On  bool
	Box geom.Box
}

func (s Step) String() string {
	if s.On {
		return "on " + s.Box.String()
	}
	return "off " + s.Box.String()
}

// ParseError reports a malformed instruction line. Line is 1-based when the
// line came from ParseAll and 0 otherwise.
type ParseError struct {
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	stepRe  = regexp.MustCompile(`^(\S+)\s+(.*)$`)
	rangeRe = regexp.MustCompile(`^x=(\S+?)\.\.(\S+?),y=(\S+?)\.\.(\S+?),z=(\S+?)\.\.(\S+)$`)

	errSyntax = errors.New("syntax: expected <on|off> x=<a>..<b>,y=<c>..<d>,z=<e>..<f>")
)

// Parse parses a single instruction:
// "on x=10..12,y=10..12,z=10..12"
// "off x=-54112..-39298,y=-85059..-49293,z=-27449..7877"
func Parse(line string) (Step, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Step{}, &ParseError{Text: line, Reason: "empty instruction", Err: errSyntax}
	}

	m := stepRe.FindStringSubmatch(text)
	if m == nil {
		return Step{}, &ParseError{Text: line, Reason: "missing ranges", Err: errSyntax}
	}

	var step Step
	switch m[1] {
	case "on":
		step.On = true
	case "off":
	default:
		return Step{}, &ParseError{Text: line, Reason: fmt.Sprintf("unknown keyword %q", m[1]), Err: errSyntax}
	}

	box, err := parseRanges(m[2])
	if err != nil {
		err.Text = line
		return Step{}, err
	}
	step.Box = box
	return step, nil
}

// ParseBox parses the range part of an instruction, "x=a..b,y=c..d,z=e..f".
func ParseBox(text string) (geom.Box, error) {
	box, err := parseRanges(text)
	if err != nil {
		return geom.Box{}, err
	}
	return box, nil
}

func parseRanges(text string) (geom.Box, *ParseError) {
	r := rangeRe.FindStringSubmatch(strings.TrimSpace(text))
	if r == nil {
		return geom.Box{}, &ParseError{Text: text, Reason: "malformed ranges", Err: errSyntax}
	}

	var bounds [6]int64
	for i := range bounds {
		v, err := strconv.ParseInt(r[i+1], 10, 64)
		if err != nil {
			return geom.Box{}, &ParseError{Text: text, Reason: fmt.Sprintf("invalid bound %q", r[i+1]), Err: err}
		}
		bounds[i] = v
	}

	box, err := geom.NewBox(
		geom.Point{X: bounds[0], Y: bounds[2], Z: bounds[4]},
		geom.Point{X: bounds[1], Y: bounds[3], Z: bounds[5]},
	)
	if errors.Is(err, geom.ErrOutOfRange) {
		return geom.Box{}, &ParseError{Text: text, Reason: fmt.Sprintf("coordinate beyond ±%d", geom.MaxCoord), Err: err}
	}
	if err != nil {
		return geom.Box{}, &ParseError{Text: text, Reason: "reversed range", Err: err}
	}
	return box, nil
}

// ParseAll reads one instruction per line. Blank lines and lines starting
// with '#' are skipped. The first malformed line aborts the read.
func ParseAll(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		step, err := Parse(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = n
			}
			return nil, err
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// Boxes returns the box of every step.
func Boxes(steps []Step) []geom.Box {
	out := make([]geom.Box, len(steps))
	for i, s := range steps {
		out[i] = s.Box
	}
	return out
}
