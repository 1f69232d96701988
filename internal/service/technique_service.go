package service

import (
	"fmt"
	"strings"

	"studygen_backend/internal/model"
)

// TechniqueConfig describes how a study technique shapes a generated
// quiz: how many questions it needs at minimum, which question formats
// suit it, the suggested time box, and the guidance injected into the
// generation prompt.
type TechniqueConfig struct {
	MinQuestions     int
	QuestionTypes    []model.QuestionType
	TimeLimitMinutes int
	PromptGuidance   string
}

const defaultTechnique = "general"

var techniqueConfigs = map[string]TechniqueConfig{
	"active_recall": {
		MinQuestions:     8,
		QuestionTypes:    []model.QuestionType{model.ShortAnswer, model.FillInBlank, model.DefinitionRecall},
		TimeLimitMinutes: 20,
		PromptGuidance:   "Questions must force retrieval from memory without hints in the question text. Prefer open-ended recall over recognition.",
	},
	"feynman_technique": {
		MinQuestions:     5,
		QuestionTypes:    []model.QuestionType{model.Explanation, model.TeachConcept, model.ConceptMatching},
		TimeLimitMinutes: 30,
		PromptGuidance:   "Ask the learner to explain concepts in plain language as if teaching someone with no background. Reward simple, accurate explanations.",
	},
	"pomodoro": {
		MinQuestions:     5,
		QuestionTypes:    []model.QuestionType{model.MultipleChoice, model.TrueFalse},
		TimeLimitMinutes: 15,
		PromptGuidance:   "Keep questions short and quick to answer so the whole quiz fits inside a single focus interval.",
	},
	"spaced_repetition": {
		MinQuestions:     10,
		QuestionTypes:    []model.QuestionType{model.MultipleChoice, model.DefinitionRecall, model.TrueFalse},
		TimeLimitMinutes: 25,
		PromptGuidance:   "Cover the full breadth of the material so repeated sessions can interleave every concept, not just the opening sections.",
	},
	"mind_mapping": {
		MinQuestions:     6,
		QuestionTypes:    []model.QuestionType{model.ConceptMatching, model.Explanation},
		TimeLimitMinutes: 25,
		PromptGuidance:   "Emphasize relationships between concepts: how ideas connect, contrast, and build on each other.",
	},
	defaultTechnique: {
		MinQuestions:     5,
		QuestionTypes:    []model.QuestionType{model.MultipleChoice, model.TrueFalse, model.ShortAnswer},
		TimeLimitMinutes: 20,
		PromptGuidance:   "Provide a balanced mix of question formats covering the key points of the material.",
	},
}

// TechniqueService resolves study-technique names to their quiz-shaping
// configuration. Unknown names fall back to the general profile so a
// typo in a client never blocks generation.
type TechniqueService struct{}

func NewTechniqueService() *TechniqueService {
	return &TechniqueService{}
}

// Resolve returns the configuration for a technique along with the
// canonical name actually used.
func (s *TechniqueService) Resolve(technique string) (string, TechniqueConfig) {
	name := strings.ToLower(strings.TrimSpace(technique))
	if cfg, ok := techniqueConfigs[name]; ok {
		return name, cfg
	}
	return defaultTechnique, techniqueConfigs[defaultTechnique]
}

// Known reports whether a technique name resolves to a built-in profile.
func (s *TechniqueService) Known(technique string) bool {
	_, ok := techniqueConfigs[strings.ToLower(strings.TrimSpace(technique))]
	return ok
}

// Techniques lists the built-in technique names.
func (s *TechniqueService) Techniques() []string {
	names := make([]string, 0, len(techniqueConfigs))
	for name := range techniqueConfigs {
		names = append(names, name)
	}
	return names
}

// Instructions renders the prompt block for one or more techniques. With
// several techniques the block asks for a proportional distribution of
// questions across them.
func (s *TechniqueService) Instructions(techniques []string) string {
	var b strings.Builder
	resolved := make([]string, 0, len(techniques))
	for _, t := range techniques {
		name, cfg := s.Resolve(t)
		resolved = append(resolved, name)
		b.WriteString(fmt.Sprintf("- %s: %s\n", name, cfg.PromptGuidance))
	}
	header := "Study technique guidance:\n"
	if len(resolved) > 1 {
		header = fmt.Sprintf("Study technique guidance (distribute questions proportionally across %s):\n",
			strings.Join(resolved, ", "))
	}
	return header + b.String()
}
