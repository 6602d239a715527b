package analysis

import (
	"regexp"
	"strings"
)

// RawComment is a quote/comment pair as written by the model, before it is located in the text.
type RawComment struct {
	Quote   string
	Comment string
}

func (c RawComment) complete() bool {
	return c.Quote != "" && c.Comment != ""
}

// FeedbackBlock is the parsed shape of a feedback response.
type FeedbackBlock struct {
	Strengths    string
	Improvements string
	ActionItems  string
	Comments     []RawComment
}

type parserState int

const (
	stateNone parserState = iota
	stateStrengths
	stateImprovements
	stateActionItems
	stateInline
)

var (
	sectionHeaders = map[string]parserState{
		"STRENGTHS":       stateStrengths,
		"IMPROVEMENTS":    stateImprovements,
		"ACTION ITEMS":    stateActionItems,
		"INLINE COMMENTS": stateInline,
	}
	bulletPattern    = regexp.MustCompile(`^(?:[-•]\s*|\*\s+|\d+[.)]\s+)`)
	separatorPattern = regexp.MustCompile(`^-{3,}$`)
	quotePrefix      = regexp.MustCompile(`(?i)^quote\s*:\s*`)
	commentPrefix    = regexp.MustCompile(`(?i)^comment\s*:\s*`)
)

type feedbackParser struct {
	state    parserState
	pair     *RawComment
	sections map[parserState][]string
	comments []RawComment
}

// ParseFeedback reads a STRENGTHS / IMPROVEMENTS / ACTION ITEMS / INLINE COMMENTS
// response line by line. It never fails; unrecognised input yields empty sections.
func ParseFeedback(response string) FeedbackBlock {
	p := &feedbackParser{sections: make(map[parserState][]string)}

	for _, line := range strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n") {
		p.consume(strings.TrimSpace(line))
	}
	if p.state == stateInline {
		p.flush()
	}

	return FeedbackBlock{
		Strengths:    strings.Join(p.sections[stateStrengths], "\n"),
		Improvements: strings.Join(p.sections[stateImprovements], "\n"),
		ActionItems:  strings.Join(p.sections[stateActionItems], "\n"),
		Comments:     p.comments,
	}
}

func (p *feedbackParser) consume(line string) {
	if next, ok := matchHeader(line); ok {
		if p.state == stateInline {
			p.flush()
		}
		p.state = next
		p.pair = nil
		return
	}

	switch p.state {
	case stateNone:
		return
	case stateInline:
		p.consumeInline(line)
	default:
		if line == "" || separatorPattern.MatchString(line) {
			return
		}
		item := strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
		if item != "" {
			p.sections[p.state] = append(p.sections[p.state], item)
		}
	}
}

func (p *feedbackParser) consumeInline(line string) {
	switch {
	case line == "":
		return
	case separatorPattern.MatchString(line):
		p.flush()
	case quotePrefix.MatchString(line):
		p.flush()
		p.pair = &RawComment{Quote: unquote(quotePrefix.ReplaceAllString(line, ""))}
	case commentPrefix.MatchString(line):
		if p.pair != nil {
			p.pair.Comment = unquote(commentPrefix.ReplaceAllString(line, ""))
		}
	case p.pair != nil:
		if p.pair.Comment == "" {
			p.pair.Comment = unquote(line)
		} else {
			p.pair.Comment += "\n" + line
		}
	}
}

// flush pushes the working pair when it is complete and clears the slot either way.
func (p *feedbackParser) flush() {
	if p.pair != nil && p.pair.complete() {
		p.comments = append(p.comments, *p.pair)
	}
	p.pair = nil
}

func matchHeader(line string) (parserState, bool) {
	normalized := strings.TrimLeft(line, "# ")
	normalized = strings.ReplaceAll(normalized, "*", "")
	normalized = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(normalized), ":"))
	normalized = strings.ToUpper(strings.Join(strings.Fields(normalized), " "))
	state, ok := sectionHeaders[normalized]
	return state, ok
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) < 2 {
		return value
	}

	first, last := runes[0], runes[len(runes)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '“' && last == '”') {
		return strings.TrimSpace(string(runes[1 : len(runes)-1]))
	}
	return value
}
