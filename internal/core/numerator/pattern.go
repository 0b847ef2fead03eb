package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxPatternLength bounds user-supplied patterns. Longer patterns are
// rejected and the caller falls back to the hard default.
const MaxPatternLength = 80

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenYear4
	tokenYear2
	tokenMonth
	tokenDay
	tokenSeq
)

type token struct {
	kind    tokenKind
	literal string
	// padWidth is the zero-pad width for tokenSeq (number of '0' runes in the token)
	padWidth int
}

// Pattern is a compiled number pattern.
// Supported tokens: {YYYY} {YY} {MM} {DD} {SEQ:000...}.
type Pattern struct {
	source string
	tokens []token
}

// Compile parses and validates a pattern string against the token allow-list.
// Exactly one {SEQ:...} token is required.
func Compile(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	if len(pattern) > MaxPatternLength {
		return Pattern{}, fmt.Errorf("pattern exceeds %d characters", MaxPatternLength)
	}

	var tokens []token
	seqCount := 0
	rest := pattern

	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			tokens = append(tokens, token{kind: tokenLiteral, literal: rest})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, literal: rest[:open]})
			rest = rest[open:]
		}
		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return Pattern{}, fmt.Errorf("unclosed token in pattern %q", pattern)
		}
		name := rest[1:close]
		rest = rest[close+1:]

		switch {
		case name == "YYYY":
			tokens = append(tokens, token{kind: tokenYear4})
		case name == "YY":
			tokens = append(tokens, token{kind: tokenYear2})
		case name == "MM":
			tokens = append(tokens, token{kind: tokenMonth})
		case name == "DD":
			tokens = append(tokens, token{kind: tokenDay})
		case strings.HasPrefix(name, "SEQ:"):
			pad := name[len("SEQ:"):]
			if pad == "" || strings.Trim(pad, "0") != "" {
				return Pattern{}, fmt.Errorf("invalid SEQ pad %q", pad)
			}
			tokens = append(tokens, token{kind: tokenSeq, padWidth: len(pad)})
			seqCount++
		default:
			return Pattern{}, fmt.Errorf("unknown token {%s}", name)
		}
	}

	if seqCount != 1 {
		return Pattern{}, fmt.Errorf("pattern must contain exactly one {SEQ:...} token")
	}

	return Pattern{source: pattern, tokens: tokens}, nil
}

// MustCompile compiles a pattern, panicking on error. Use only for constants.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern source.
func (p Pattern) String() string {
	return p.source
}

// Render produces the document number for a sequence value and reference date.
func (p Pattern) Render(period time.Time, seq int64) string {
	var b strings.Builder
	for _, t := range p.tokens {
		switch t.kind {
		case tokenLiteral:
			b.WriteString(t.literal)
		case tokenYear4:
			b.WriteString(period.Format("2006"))
		case tokenYear2:
			b.WriteString(period.Format("06"))
		case tokenMonth:
			b.WriteString(period.Format("01"))
		case tokenDay:
			b.WriteString(period.Format("02"))
		case tokenSeq:
			b.WriteString(fmt.Sprintf("%0*d", t.padWidth, seq))
		}
	}
	return b.String()
}

// ParseSequence extracts the numeric sequence from a formatted number,
// assuming it was produced by this pattern. Returns -1 if parsing fails.
func (p Pattern) ParseSequence(formatted string, period time.Time) int64 {
	rest := formatted
	for _, t := range p.tokens {
		switch t.kind {
		case tokenLiteral:
			if !strings.HasPrefix(rest, t.literal) {
				return -1
			}
			rest = rest[len(t.literal):]
		case tokenYear4, tokenYear2, tokenMonth, tokenDay:
			width := map[tokenKind]int{tokenYear4: 4, tokenYear2: 2, tokenMonth: 2, tokenDay: 2}[t.kind]
			if len(rest) < width {
				return -1
			}
			rest = rest[width:]
		case tokenSeq:
			digits := 0
			for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
				digits++
			}
			if digits == 0 {
				return -1
			}
			n, err := strconv.ParseInt(rest[:digits], 10, 64)
			if err != nil {
				return -1
			}
			return n
		}
	}
	return -1
}
