package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studygen_backend/internal/model"
	"studygen_backend/internal/util"
)

const validQuizJSON = `{
  "title": "Criminal Law Basics",
  "description": "Core mens rea concepts",
  "questions": [
    {"id": 1, "type": "multiple_choice", "question": "What does mens rea mean?", "options": ["guilty mind", "guilty act", "intent", "motive"], "correctAnswer": 0, "points": 5},
    {"type": "true_false", "question": "Mens rea means guilty mind.", "correctAnswer": true},
    {"type": "short_answer", "question": "Define mens rea.", "correctAnswer": "guilty mind"}
  ]
}`

func TestParseRawJSON(t *testing.T) {
	p := NewResponseParser()

	quiz, err := p.Parse(validQuizJSON)
	require.NoError(t, err)
	assert.Equal(t, "Criminal Law Basics", quiz.Title)
	assert.Len(t, quiz.Questions, 3)
}

func TestParseFencedJSONMatchesRawJSON(t *testing.T) {
	p := NewResponseParser()

	fenced := "Here is your quiz:\n\n```json\n" + validQuizJSON + "\n```\n\nLet me know if you need more."

	fromRaw, err := p.Parse(validQuizJSON)
	require.NoError(t, err)
	fromFenced, err := p.Parse(fenced)
	require.NoError(t, err)

	assert.Equal(t, fromRaw, fromFenced)
}

func TestParseGarbageFails(t *testing.T) {
	p := NewResponseParser()

	_, err := p.Parse("I'm sorry, I can't produce a quiz for that material.")
	assert.ErrorIs(t, err, util.ErrUnparsableResponse)
}

func TestParseEmptyInputFails(t *testing.T) {
	p := NewResponseParser()

	_, err := p.Parse("")
	assert.ErrorIs(t, err, util.ErrUnparsableResponse)
}

func TestNormalizationDefaults(t *testing.T) {
	p := NewResponseParser()

	quiz, err := p.Parse(validQuizJSON)
	require.NoError(t, err)

	// Provider-supplied ids survive; missing ids are filled 1-based.
	assert.Equal(t, 1, quiz.Questions[0].ID)
	assert.Equal(t, 2, quiz.Questions[1].ID)
	assert.Equal(t, 3, quiz.Questions[2].ID)

	// Missing points: 10 for short answer, 5 otherwise.
	assert.Equal(t, 5, quiz.Questions[1].Points)
	assert.Equal(t, 10, quiz.Questions[2].Points)

	// Quiz-level defaults.
	assert.Equal(t, 15, quiz.TimeLimit)
	assert.Equal(t, 70, quiz.PassingScore)
}

func TestProviderQuestionIDsSurviveNormalization(t *testing.T) {
	p := NewResponseParser()

	raw := `{"title":"T","questions":[
		{"id":7,"type":"true_false","question":"Mens rea means guilty mind.","correctAnswer":true},
		{"type":"true_false","question":"Actus reus means guilty act.","correctAnswer":true}
	]}`
	quiz, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, quiz.Questions[0].ID)
	assert.Equal(t, 2, quiz.Questions[1].ID)
}

func TestTimeLimitScalesWithQuestionCount(t *testing.T) {
	p := NewResponseParser()

	raw := `{"title":"T","questions":[` + repeatQuestion(10) + `]}`
	quiz, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 20, quiz.TimeLimit)
}

func TestMissingTypeDefaultsToMultipleChoice(t *testing.T) {
	p := NewResponseParser()

	raw := `{"title":"T","questions":[{"question":"Pick one","options":["a","b","c","d"],"correctAnswer":1}]}`
	quiz, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, model.MultipleChoice, quiz.Questions[0].Type)
}

func TestInvalidMultipleChoiceRejected(t *testing.T) {
	p := NewResponseParser()

	threeOptions := `{"title":"T","questions":[{"type":"multiple_choice","question":"Q?","options":["a","b","c"],"correctAnswer":0}]}`
	_, err := p.Parse(threeOptions)
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)

	indexOutOfRange := `{"title":"T","questions":[{"type":"multiple_choice","question":"Q?","options":["a","b","c","d"],"correctAnswer":4}]}`
	_, err = p.Parse(indexOutOfRange)
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)
}

func TestParseRecoverJSONEmbeddedInProse(t *testing.T) {
	p := NewResponseParser()

	embedded := "Sure! Based on the material, here are the questions. " + validQuizJSON + " Hope this helps!"
	quiz, err := p.Parse(embedded)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 3)
}

func repeatQuestion(n int) string {
	q := `{"type":"true_false","question":"Mens rea means guilty mind.","correctAnswer":true}`
	out := q
	for i := 1; i < n; i++ {
		out += "," + q
	}
	return out
}
