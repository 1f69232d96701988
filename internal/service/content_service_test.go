package service

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studygen_backend/internal/model"
	"studygen_backend/internal/util"
)

type fakeMaterials struct {
	materials []model.Material
	err       error
}

func (f *fakeMaterials) FindByModule(moduleID uint) ([]model.Material, error) {
	return f.materials, f.err
}

func TestAssembleModuleContent(t *testing.T) {
	s := &ContentService{
		materials: &fakeMaterials{materials: []model.Material{
			{Title: "Mens Rea", Description: "Mens rea means guilty mind."},
			{Title: "Actus Reus", Description: "Actus reus means guilty act."},
		}},
		maxChars: 12000,
	}

	text, fp, err := s.AssembleModuleContent(1)
	require.NoError(t, err)
	assert.Contains(t, text, "## Mens Rea")
	assert.Contains(t, text, "guilty mind")
	assert.Contains(t, text, "## Actus Reus")
	assert.Len(t, fp, 16)

	// Order-preserving concatenation.
	assert.Less(t, strings.Index(text, "Mens Rea"), strings.Index(text, "Actus Reus"))
}

func TestAssembleModuleContentNoMaterials(t *testing.T) {
	s := &ContentService{materials: &fakeMaterials{}, maxChars: 12000}

	_, _, err := s.AssembleModuleContent(1)
	assert.ErrorIs(t, err, util.ErrNoMaterialsFound)
}

func TestAssembleModuleContentTruncates(t *testing.T) {
	s := &ContentService{
		materials: &fakeMaterials{materials: []model.Material{
			{Title: "Long", Description: strings.Repeat("a", 500)},
		}},
		maxChars: 100,
	}

	text, _, err := s.AssembleModuleContent(1)
	require.NoError(t, err)
	assert.Len(t, text, 100)
}

func TestAssembleModuleContentTruncatesOnRuneBoundary(t *testing.T) {
	s := &ContentService{
		materials: &fakeMaterials{materials: []model.Material{
			{Title: "Begriffe", Description: strings.Repeat("ü", 100)},
		}},
		// Lands mid-rune: the header is 12 bytes, so byte 21 falls
		// inside a two-byte character.
		maxChars: 21,
	}

	text, _, err := s.AssembleModuleContent(1)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 20, len(text))
}

func TestAssembleModuleContentPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	s := &ContentService{materials: &fakeMaterials{err: storeErr}, maxChars: 100}

	_, _, err := s.AssembleModuleContent(1)
	assert.ErrorIs(t, err, storeErr)
}
