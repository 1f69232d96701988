package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"studygen_backend/internal/config"
	"studygen_backend/internal/model"
	"studygen_backend/internal/repository"
	"studygen_backend/internal/util"
)

// ContentService assembles the study text a generation prompt draws
// from. Only material titles and description text participate; binary
// course files are out of scope for this service.
type ContentService struct {
	materials materialSource
	maxChars  int
}

type materialSource interface {
	FindByModule(moduleID uint) ([]model.Material, error)
}

func NewContentService(repo *repository.MaterialRepository, cfg *config.Config) *ContentService {
	return &ContentService{materials: repo, maxChars: cfg.Generation.MaxContentChars}
}

// AssembleModuleContent concatenates a module's materials in their
// configured order and returns the text along with its fingerprint.
// A module with no materials is a hard error; there is nothing to
// generate from.
func (s *ContentService) AssembleModuleContent(moduleID uint) (string, string, error) {
	materials, err := s.materials.FindByModule(moduleID)
	if err != nil {
		return "", "", err
	}
	if len(materials) == 0 {
		return "", "", util.ErrNoMaterialsFound
	}

	var b strings.Builder
	for _, m := range materials {
		b.WriteString(fmt.Sprintf("## %s\n", m.Title))
		if desc := strings.TrimSpace(m.Description); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if s.maxChars > 0 && len(text) > s.maxChars {
		cut := s.maxChars
		// Back up to a rune boundary so the provider never sees a
		// split multi-byte character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	return text, util.ContentFingerprint(text), nil
}
