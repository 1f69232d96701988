package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"studygen_backend/internal/model"
)

func TestResolveKnownTechnique(t *testing.T) {
	s := NewTechniqueService()

	name, cfg := s.Resolve("active_recall")
	assert.Equal(t, "active_recall", name)
	assert.Equal(t, 8, cfg.MinQuestions)
	assert.Contains(t, cfg.QuestionTypes, model.ShortAnswer)
	assert.NotEmpty(t, cfg.PromptGuidance)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	s := NewTechniqueService()

	name, _ := s.Resolve("  Pomodoro ")
	assert.Equal(t, "pomodoro", name)
}

func TestResolveUnknownFallsBackToGeneral(t *testing.T) {
	s := NewTechniqueService()

	name, cfg := s.Resolve("loci_method")
	assert.Equal(t, "general", name)
	assert.Equal(t, 5, cfg.MinQuestions)
	assert.False(t, s.Known("loci_method"))
}

func TestInstructionsSingleTechnique(t *testing.T) {
	s := NewTechniqueService()

	block := s.Instructions([]string{"feynman_technique"})
	assert.Contains(t, block, "feynman_technique")
	assert.Contains(t, block, "teaching")
	assert.NotContains(t, block, "proportionally")
}

func TestInstructionsMultipleTechniquesAskForDistribution(t *testing.T) {
	s := NewTechniqueService()

	block := s.Instructions([]string{"active_recall", "pomodoro"})
	assert.Contains(t, block, "proportionally")
	assert.Contains(t, block, "active_recall")
	assert.Contains(t, block, "pomodoro")

	// One guidance line per technique after the header.
	assert.Equal(t, 2, strings.Count(block, "\n- "))
}
