package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	MultipleChoice   QuestionType = "multiple_choice"
	TrueFalse        QuestionType = "true_false"
	ShortAnswer      QuestionType = "short_answer"
	FillInBlank      QuestionType = "fill_in_blank"
	DefinitionRecall QuestionType = "definition_recall"
	ConceptMatching  QuestionType = "concept_matching"
	Explanation      QuestionType = "explanation"
	TeachConcept     QuestionType = "teach_concept"
)

// AllQuestionTypes lists every recognized question type.
var AllQuestionTypes = []QuestionType{
	MultipleChoice, TrueFalse, ShortAnswer, FillInBlank,
	DefinitionRecall, ConceptMatching, Explanation, TeachConcept,
}

func IsValidQuestionType(t QuestionType) bool {
	for _, qt := range AllQuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerIndex
	AnswerBool
	AnswerText
	AnswerList
)

// AnswerValue is the correct-answer field of a question. Its JSON shape
// depends on the question type: an option index for multiple choice, a
// boolean for true/false, and a string or string list otherwise.
type AnswerValue struct {
	Kind  AnswerKind
	Index int
	Bool  bool
	Text  string
	List  []string
}

func IndexAnswer(i int) AnswerValue     { return AnswerValue{Kind: AnswerIndex, Index: i} }
func BoolAnswer(b bool) AnswerValue     { return AnswerValue{Kind: AnswerBool, Bool: b} }
func TextAnswer(s string) AnswerValue   { return AnswerValue{Kind: AnswerText, Text: s} }
func ListAnswer(l []string) AnswerValue { return AnswerValue{Kind: AnswerList, List: l} }

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = BoolAnswer(b)
	case '[':
		var l []string
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		*a = ListAnswer(l)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported answer shape: %s", string(data))
		}
		if f != float64(int(f)) || f < 0 {
			return fmt.Errorf("answer index must be a non-negative integer, got %v", f)
		}
		*a = IndexAnswer(int(f))
	}
	return nil
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerIndex:
		return json.Marshal(a.Index)
	case AnswerBool:
		return json.Marshal(a.Bool)
	case AnswerText:
		return json.Marshal(a.Text)
	case AnswerList:
		return json.Marshal(a.List)
	default:
		return []byte("null"), nil
	}
}

type QuizQuestion struct {
	ID            int          `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer AnswerValue  `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Points        int          `json:"points"`
}

// quizQuestionAlias tolerates the field spellings providers actually emit.
type quizQuestionAlias struct {
	ID               int          `json:"id"`
	Type             QuestionType `json:"type"`
	Question         string       `json:"question"`
	Text             string       `json:"text"`
	Options          []string     `json:"options"`
	CorrectAnswer    *AnswerValue `json:"correctAnswer"`
	CorrectAnswerAlt *AnswerValue `json:"correct_answer"`
	Explanation      string       `json:"explanation"`
	Points           int          `json:"points"`
}

func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var alias quizQuestionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	q.ID = alias.ID
	q.Type = alias.Type
	q.Question = alias.Question
	if q.Question == "" {
		q.Question = alias.Text
	}
	q.Options = alias.Options
	q.Explanation = alias.Explanation
	q.Points = alias.Points
	if alias.CorrectAnswer != nil {
		q.CorrectAnswer = *alias.CorrectAnswer
	} else if alias.CorrectAnswerAlt != nil {
		q.CorrectAnswer = *alias.CorrectAnswerAlt
	}
	return nil
}

// Validate enforces the per-type answer shape invariants.
func (q *QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is empty")
	}
	if !IsValidQuestionType(q.Type) {
		return fmt.Errorf("unknown question type %q", q.Type)
	}

	switch q.Type {
	case MultipleChoice:
		if len(q.Options) != 4 {
			return fmt.Errorf("multiple choice question must have exactly 4 options, got %d", len(q.Options))
		}
		if q.CorrectAnswer.Kind != AnswerIndex {
			return fmt.Errorf("multiple choice answer must be an option index")
		}
		if q.CorrectAnswer.Index < 0 || q.CorrectAnswer.Index >= 4 {
			return fmt.Errorf("multiple choice answer index %d out of range [0,4)", q.CorrectAnswer.Index)
		}
	case TrueFalse:
		if q.CorrectAnswer.Kind != AnswerBool {
			return fmt.Errorf("true/false answer must be a boolean")
		}
	case Explanation, TeachConcept:
		// Graded qualitatively; a model answer is optional.
		if q.CorrectAnswer.Kind == AnswerIndex || q.CorrectAnswer.Kind == AnswerBool {
			return fmt.Errorf("%s answer must be text, got %v", q.Type, q.CorrectAnswer.Kind)
		}
	default:
		switch q.CorrectAnswer.Kind {
		case AnswerText:
			if strings.TrimSpace(q.CorrectAnswer.Text) == "" {
				return fmt.Errorf("%s answer text is empty", q.Type)
			}
		case AnswerList:
			if len(q.CorrectAnswer.List) == 0 {
				return fmt.Errorf("%s answer list is empty", q.Type)
			}
		default:
			return fmt.Errorf("%s answer must be a string or string list", q.Type)
		}
	}
	return nil
}

// GeneratedQuiz is the artifact produced by the generation pipeline or
// authored by an instructor.
type GeneratedQuiz struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Questions    []QuizQuestion `json:"questions"`
	TimeLimit    int            `json:"timeLimit"`
	PassingScore int            `json:"passingScore"`
}

type generatedQuizAlias struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Questions       []QuizQuestion `json:"questions"`
	TimeLimit       int            `json:"timeLimit"`
	TimeLimitAlt    int            `json:"time_limit"`
	PassingScore    int            `json:"passingScore"`
	PassingScoreAlt int            `json:"passing_score"`
}

func (g *GeneratedQuiz) UnmarshalJSON(data []byte) error {
	var alias generatedQuizAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	g.Title = alias.Title
	g.Description = alias.Description
	g.Questions = alias.Questions
	g.TimeLimit = alias.TimeLimit
	if g.TimeLimit == 0 {
		g.TimeLimit = alias.TimeLimitAlt
	}
	g.PassingScore = alias.PassingScore
	if g.PassingScore == 0 {
		g.PassingScore = alias.PassingScoreAlt
	}
	return nil
}

func (g *GeneratedQuiz) Validate() error {
	if len(g.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	for i := range g.Questions {
		if err := g.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
