package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"studygen_backend/internal/model"
	"studygen_backend/internal/util"
)

// ResponseParser turns raw provider output into a validated quiz.
// Providers wrap JSON in prose, markdown fences, or truncated noise, so
// extraction tries progressively more forgiving strategies before
// giving up.
type ResponseParser struct{}

func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Parse extracts, normalizes, and validates a quiz from raw provider
// text. Returns util.ErrUnparsableResponse when no strategy yields JSON
// that decodes, and util.ErrInvalidQuiz when the decoded quiz breaks a
// structural invariant.
func (p *ResponseParser) Parse(raw string) (*model.GeneratedQuiz, error) {
	quiz, err := p.extract(raw)
	if err != nil {
		return nil, err
	}

	p.normalize(quiz)

	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidQuiz, err)
	}
	return quiz, nil
}

func (p *ResponseParser) extract(raw string) (*model.GeneratedQuiz, error) {
	for _, candidate := range p.candidates(raw) {
		var quiz model.GeneratedQuiz
		if err := json.Unmarshal([]byte(candidate), &quiz); err == nil {
			return &quiz, nil
		}
	}
	return nil, util.ErrUnparsableResponse
}

// candidates yields extraction attempts in order of decreasing strictness.
func (p *ResponseParser) candidates(raw string) []string {
	var out []string

	// Widest {...} span, spanning newlines. Catches JSON embedded in prose.
	if m := jsonObjectPattern.FindString(raw); m != "" {
		out = append(out, m)
	}

	// First opening brace to last closing brace.
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}

	// Strip markdown fences and commentary lines, keep only lines that
	// look like JSON structure. Rescues fenced output with stray chatter.
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if trimmed == "" {
			continue
		}
		switch trimmed[0] {
		case '{', '}', '[', ']', '"':
			kept = append(kept, line)
		default:
			if strings.Contains(trimmed, ":") {
				kept = append(kept, line)
			}
		}
	}
	if len(kept) > 0 {
		out = append(out, strings.Join(kept, "\n"))
	}

	return out
}

// normalize fills the gaps providers routinely leave: missing ids, types,
// points, and quiz-level defaults.
func (p *ResponseParser) normalize(quiz *model.GeneratedQuiz) {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == 0 {
			q.ID = i + 1
		}
		if q.Type == "" {
			q.Type = model.MultipleChoice
		}
		if q.Points <= 0 {
			if q.Type == model.ShortAnswer {
				q.Points = 10
			} else {
				q.Points = 5
			}
		}
	}

	if quiz.TimeLimit <= 0 {
		quiz.TimeLimit = 2 * len(quiz.Questions)
		if quiz.TimeLimit < 15 {
			quiz.TimeLimit = 15
		}
	}
	if quiz.PassingScore <= 0 {
		quiz.PassingScore = 70
	}
}
