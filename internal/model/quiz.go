package model

import "encoding/json"

type QuizSource string

const (
	SourceGenerated  QuizSource = "generated"
	SourceInstructor QuizSource = "instructor"
)

// Quiz is the persisted quiz artifact. Generated quizzes are written by
// the orchestrator; instructor quizzes double as the fallback pool when
// live generation fails.
type Quiz struct {
	BaseModel
	ModuleID     uint            `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Technique    string          `gorm:"size:50;index" json:"technique"`
	Difficulty   string          `gorm:"size:20" json:"difficulty"`
	Source       QuizSource      `gorm:"type:enum('generated','instructor');default:'generated'" json:"source"`
	TimeLimit    int             `gorm:"default:0" json:"timeLimit"` // minutes
	PassingScore int             `gorm:"default:70" json:"passingScore"`
	Questions    json.RawMessage `gorm:"type:json" json:"questions"` // []QuizQuestion
	CreatedBy    uint            `gorm:"index;type:bigint unsigned" json:"createdBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// DecodeQuestions unpacks the JSON questions column.
func (q *Quiz) DecodeQuestions() ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if len(q.Questions) == 0 {
		return questions, nil
	}
	if err := json.Unmarshal(q.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ToGenerated rebuilds the in-memory artifact from a stored row.
func (q *Quiz) ToGenerated() (*GeneratedQuiz, error) {
	questions, err := q.DecodeQuestions()
	if err != nil {
		return nil, err
	}
	return &GeneratedQuiz{
		Title:        q.Title,
		Description:  q.Description,
		Questions:    questions,
		TimeLimit:    q.TimeLimit,
		PassingScore: q.PassingScore,
	}, nil
}
