package ocr

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// EasyOCR prints Python reprs, one result per line, mixed with whatever the
// tool logs to stdout (device notices, download progress). Two shapes exist:
//
//	([[x1, y1], [x2, y2], [x3, y3], [x4, y4]], 'text', 0.98)   standard
//	[[[x1, y1], [x2, y2], [x3, y3], [x4, y4]], 'text']         paragraph
//
// On NumPy 2 the numbers may appear as np.int32(12) or np.float64(0.98).

var (
	pointSeparator = regexp.MustCompile(`\]\s*,\s*\[`)
	numpyScalar    = regexp.MustCompile(`^(?:np|numpy)\.[a-z]+[0-9]*\((.*)\)$`)
)

// ParseOutput converts captured stdout to records in line order. Lines that
// are not records are skipped.
func ParseOutput(output string) []Record {
	var records []Record
	for _, line := range strings.Split(output, "\n") {
		if rec, ok := ParseLine(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// ParseLine parses a single output line. It reports false for log lines and
// malformed records.
func ParseLine(line string) (Record, bool) {
	s := strings.TrimSpace(line)
	if len(s) < 2 {
		return Record{}, false
	}

	var paragraph bool
	switch {
	case s[0] == '(' && s[len(s)-1] == ')':
	case s[0] == '[' && s[len(s)-1] == ']':
		paragraph = true
	default:
		return Record{}, false
	}
	s = s[1 : len(s)-1]

	end := strings.Index(s, "]]")
	if end < 0 {
		return Record{}, false
	}

	box, ok := parseBox(s[:end+2])
	if !ok {
		return Record{}, false
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(s[end+2:]), ",")
	if !ok {
		return Record{}, false
	}
	rest = strings.TrimSpace(rest)

	rec := Record{Box: box}
	text := rest

	// Paragraph mode has no score. Otherwise the score is whatever follows
	// the last comma, if that parses; the text itself may contain commas.
	if !paragraph {
		if i := strings.LastIndex(rest, ","); i >= 0 {
			if conf, ok := parseNumber(rest[i+1:]); ok {
				text = strings.TrimSpace(rest[:i])
				rec.Confidence = &conf
			}
		}
	}

	rec.Text = unquote(text)
	return rec, true
}

// parseBox parses [[x1, y1], [x2, y2], [x3, y3], [x4, y4]]
func parseBox(s string) (Box, bool) {
	var box Box

	inner, ok := strings.CutPrefix(strings.TrimSpace(s), "[[")
	if !ok {
		return box, false
	}
	inner, ok = strings.CutSuffix(inner, "]]")
	if !ok {
		return box, false
	}

	points := pointSeparator.Split(inner, -1)
	if len(points) != len(box) {
		return box, false
	}

	for i, p := range points {
		coords := strings.Split(p, ",")
		if len(coords) != 2 {
			return box, false
		}

		x, ok := parseNumber(coords[0])
		if !ok {
			return box, false
		}
		y, ok := parseNumber(coords[1])
		if !ok {
			return box, false
		}

		box[i] = Point{X: x, Y: y}
	}

	return box, true
}

// parseNumber parses a finite decimal, unwrapping NumPy scalar reprs
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if m := numpyScalar.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// unquote strips one matching pair of outer quotes
func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '\'' || q == '"') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}
