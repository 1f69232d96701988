package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"studygen_backend/internal/config"
	"studygen_backend/internal/model"
	"studygen_backend/internal/repository"
	"studygen_backend/internal/util"
	"studygen_backend/pkg/logger"
	"studygen_backend/pkg/monitoring"
)

// Collaborator contracts kept narrow so tests can substitute fakes.
type completionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type contentAssembler interface {
	AssembleModuleContent(moduleID uint) (string, string, error)
}

type cacheStore interface {
	Lookup(moduleID uint, technique, difficulty, fingerprint string) (*model.QuizCacheEntry, error)
	Insert(entry *model.QuizCacheEntry) error
}

type quizStore interface {
	Create(quiz *model.Quiz) error
	FindByID(id uint) (*model.Quiz, error)
	FindInstructorQuiz(moduleID uint, technique string) (*model.Quiz, error)
}

type requestLedger interface {
	Create(req *model.GenerationRequest) error
	Save(req *model.GenerationRequest) error
	FindByID(id uint) (*model.GenerationRequest, error)
	FindByUser(userID uint, limit int) ([]model.GenerationRequest, error)
}

type preferenceRecorder interface {
	RecordTechnique(ctx context.Context, userID, moduleID uint, technique string)
}

// GenerateQuizRequest is the caller's input to the pipeline.
type GenerateQuizRequest struct {
	UserID        uint
	ModuleID      uint
	Technique     string
	Difficulty    string
	QuestionTypes []string
	NumQuestions  int
	FocusTopics   []string
}

// GenerationResult is the success payload: the quiz plus how it was
// obtained. Fallback results accompany a failed ledger row.
type GenerationResult struct {
	RequestID        uint                 `json:"requestId"`
	QuizID           uint                 `json:"quizId"`
	Quiz             *model.GeneratedQuiz `json:"quiz"`
	Cached           bool                 `json:"cached"`
	Fallback         bool                 `json:"fallback,omitempty"`
	ProcessingTimeMs int64                `json:"processingTimeMs,omitempty"`
	Message          string               `json:"message,omitempty"`
}

// RequestStatus is the polling view of a ledger row.
type RequestStatus struct {
	RequestID        uint                   `json:"requestId"`
	Status           model.GenerationStatus `json:"status"`
	Quiz             *model.GeneratedQuiz   `json:"quiz,omitempty"`
	QuizID           *uint                  `json:"quizId,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ProcessingTimeMs int64                  `json:"processingTimeMs,omitempty"`
}

// GenerationError carries the user-facing message for a terminal
// failure. Raw provider text never reaches the caller.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string { return e.Reason }
func (e *GenerationError) Unwrap() error { return e.Err }

// generationOutcome is the value shared between singleflight callers.
type generationOutcome struct {
	quizID             uint
	quiz               *model.GeneratedQuiz
	contentFingerprint string
	processingMs       int64
}

// GenerationService orchestrates the quiz-generation pipeline: cache
// lookup, content assembly, provider call, parsing, validation, and
// persistence, advancing the request ledger through
// pending -> processing -> {completed | cached | failed}.
type GenerationService struct {
	techniques  *TechniqueService
	provider    completionProvider
	content     contentAssembler
	parser      *ResponseParser
	cache       cacheStore
	quizzes     quizStore
	ledger      requestLedger
	preferences preferenceRecorder

	// Nanoseconds; atomic so config hot-reload can adjust it while
	// requests are in flight.
	cacheTTL atomic.Int64

	// Collapses concurrent misses on the same cache key so only one
	// provider call runs per key at a time.
	inflight singleflight.Group
}

func NewGenerationService(
	techniques *TechniqueService,
	provider *AIService,
	content *ContentService,
	parser *ResponseParser,
	cache *repository.QuizCacheRepository,
	quizzes *repository.QuizRepository,
	ledger *repository.GenerationRepository,
	preferences *PreferenceService,
	cfg *config.Config,
) *GenerationService {
	s := &GenerationService{
		techniques:  techniques,
		provider:    provider,
		content:     content,
		parser:      parser,
		cache:       cache,
		quizzes:     quizzes,
		ledger:      ledger,
		preferences: preferences,
	}
	s.SetCacheTTL(time.Duration(cfg.Generation.CacheTTLHours) * time.Hour)
	return s
}

// SetCacheTTL adjusts the expiry applied to new cache entries. Existing
// entries keep the expiry they were written with.
func (s *GenerationService) SetCacheTTL(ttl time.Duration) {
	s.cacheTTL.Store(int64(ttl))
}

// Generate runs one request to a terminal state and returns the quiz or
// a GenerationError. The ledger row always reflects the outcome, even
// when a fallback quiz is substituted.
func (s *GenerationService) Generate(ctx context.Context, in GenerateQuizRequest) (*GenerationResult, error) {
	start := time.Now()

	technique, techniqueCfg := s.techniques.Resolve(in.Technique)
	difficulty := strings.ToLower(strings.TrimSpace(in.Difficulty))
	if difficulty == "" {
		difficulty = "medium"
	}

	// The fingerprint is always computed on the resolved type set so an
	// explicit and an implicit request for the same effective parameters
	// share a cache entry.
	resolvedTypes := s.resolveQuestionTypes(in.QuestionTypes, techniqueCfg)
	numQuestions := in.NumQuestions
	if numQuestions <= 0 {
		numQuestions = techniqueCfg.MinQuestions
	}
	fingerprint := util.ParamsFingerprint(resolvedTypes, difficulty, technique)

	req, err := s.openLedgerRow(in, technique, difficulty, resolvedTypes, numQuestions, fingerprint)
	if err != nil {
		return nil, err
	}

	// Cache lookup. A broken cache store degrades to a miss.
	if entry := s.lookupCache(in.ModuleID, technique, difficulty, fingerprint); entry != nil {
		result, err := s.completeFromCache(req, entry)
		if err == nil {
			s.recordPreference(ctx, in.UserID, in.ModuleID, technique)
			monitoring.GenerationCounter.WithLabelValues(technique, string(model.StatusCached)).Inc()
			return result, nil
		}
		logger.Log.Warn("cache entry unusable, generating live",
			zap.Uint("quizId", entry.QuizID), zap.Error(err))
	}

	// Cache miss: collapse concurrent identical requests onto a single
	// generation. Followers get the leader's quiz but keep their own
	// ledger rows.
	key := fmt.Sprintf("%d:%s:%s:%s", in.ModuleID, technique, difficulty, fingerprint)
	v, genErr, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.generateLive(ctx, in, technique, techniqueCfg, difficulty, resolvedTypes, numQuestions, fingerprint, start)
	})

	if genErr != nil {
		return s.failWithFallback(req, in.ModuleID, technique, genErr)
	}

	outcome := v.(*generationOutcome)
	req.Status = model.StatusCompleted
	req.QuizID = &outcome.quizID
	req.ContentFingerprint = outcome.contentFingerprint
	req.ProcessingMs = outcome.processingMs
	if shared {
		req.ProcessingMs = time.Since(start).Milliseconds()
	}
	if err := s.ledger.Save(req); err != nil {
		logger.Log.Error("failed to finalize generation request", zap.Uint("requestId", req.ID), zap.Error(err))
	}

	s.recordPreference(ctx, in.UserID, in.ModuleID, technique)
	monitoring.GenerationCounter.WithLabelValues(technique, string(model.StatusCompleted)).Inc()

	return &GenerationResult{
		RequestID:        req.ID,
		QuizID:           outcome.quizID,
		Quiz:             outcome.quiz,
		Cached:           false,
		ProcessingTimeMs: req.ProcessingMs,
	}, nil
}

// GetRequestStatus returns the polling view for a ledger row.
func (s *GenerationService) GetRequestStatus(requestID uint) (*RequestStatus, error) {
	req, err := s.ledger.FindByID(requestID)
	if err != nil {
		return nil, util.ErrRequestNotFound
	}

	status := &RequestStatus{
		RequestID: req.ID,
		Status:    req.Status,
		Error:     req.ErrorMessage,
	}
	if req.Status.IsTerminal() {
		status.ProcessingTimeMs = req.ProcessingMs
	}
	if req.QuizID != nil {
		status.QuizID = req.QuizID
		if quiz, err := s.quizzes.FindByID(*req.QuizID); err == nil {
			if generated, err := quiz.ToGenerated(); err == nil {
				status.Quiz = generated
			}
		}
	}
	return status, nil
}

// GetUserRequests lists a learner's recent ledger rows, newest first.
// Quiz payloads are omitted; callers poll GetRequestStatus for those.
func (s *GenerationService) GetUserRequests(userID uint, limit int) ([]RequestStatus, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.ledger.FindByUser(userID, limit)
	if err != nil {
		return nil, err
	}

	statuses := make([]RequestStatus, 0, len(rows))
	for _, row := range rows {
		status := RequestStatus{
			RequestID: row.ID,
			Status:    row.Status,
			Error:     row.ErrorMessage,
			QuizID:    row.QuizID,
		}
		if row.Status.IsTerminal() {
			status.ProcessingTimeMs = row.ProcessingMs
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *GenerationService) resolveQuestionTypes(requested []string, cfg TechniqueConfig) []string {
	if len(requested) > 0 {
		types := make([]string, 0, len(requested))
		for _, t := range requested {
			if trimmed := strings.ToLower(strings.TrimSpace(t)); trimmed != "" {
				types = append(types, trimmed)
			}
		}
		if len(types) > 0 {
			return types
		}
	}
	types := make([]string, len(cfg.QuestionTypes))
	for i, t := range cfg.QuestionTypes {
		types[i] = string(t)
	}
	return types
}

func (s *GenerationService) openLedgerRow(in GenerateQuizRequest, technique, difficulty string, types []string, count int, fingerprint string) (*model.GenerationRequest, error) {
	typesJSON, _ := json.Marshal(types)
	topicsJSON, _ := json.Marshal(in.FocusTopics)

	req := &model.GenerationRequest{
		UserID:         in.UserID,
		ModuleID:       in.ModuleID,
		Technique:      technique,
		Difficulty:     difficulty,
		QuestionTypes:  typesJSON,
		RequestedCount: count,
		FocusTopics:    topicsJSON,
		Fingerprint:    fingerprint,
		Status:         model.StatusPending,
	}
	if err := s.ledger.Create(req); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}

	req.Status = model.StatusProcessing
	if err := s.ledger.Save(req); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}
	return req, nil
}

func (s *GenerationService) lookupCache(moduleID uint, technique, difficulty, fingerprint string) *model.QuizCacheEntry {
	entry, err := s.cache.Lookup(moduleID, technique, difficulty, fingerprint)
	if err != nil {
		// Treat a broken cache as a miss and generate live.
		logger.Log.Warn("cache lookup failed, treating as miss", zap.Error(err))
		monitoring.CacheLookupCounter.WithLabelValues("error").Inc()
		return nil
	}
	if entry == nil {
		monitoring.CacheLookupCounter.WithLabelValues("miss").Inc()
		return nil
	}
	monitoring.CacheLookupCounter.WithLabelValues("hit").Inc()
	return entry
}

func (s *GenerationService) completeFromCache(req *model.GenerationRequest, entry *model.QuizCacheEntry) (*GenerationResult, error) {
	quiz, err := s.quizzes.FindByID(entry.QuizID)
	if err != nil {
		return nil, err
	}
	generated, err := quiz.ToGenerated()
	if err != nil {
		return nil, err
	}

	req.Status = model.StatusCached
	req.QuizID = &entry.QuizID
	req.ContentFingerprint = entry.ContentFingerprint
	if err := s.ledger.Save(req); err != nil {
		logger.Log.Error("failed to mark request cached", zap.Uint("requestId", req.ID), zap.Error(err))
	}

	return &GenerationResult{
		RequestID: req.ID,
		QuizID:    entry.QuizID,
		Quiz:      generated,
		Cached:    true,
	}, nil
}

func (s *GenerationService) generateLive(ctx context.Context, in GenerateQuizRequest, technique string, techniqueCfg TechniqueConfig, difficulty string, types []string, count int, fingerprint string, start time.Time) (*generationOutcome, error) {
	content, contentFP, err := s.content.AssembleModuleContent(in.ModuleID)
	if err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(content, technique, difficulty, types, count, in.FocusTopics)

	raw, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	generated, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	questionsJSON, err := json.Marshal(generated.Questions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}
	title := generated.Title
	if title == "" {
		title = fmt.Sprintf("%s quiz", strings.ReplaceAll(technique, "_", " "))
	}
	quiz := &model.Quiz{
		ModuleID:     in.ModuleID,
		Title:        title,
		Description:  generated.Description,
		Technique:    technique,
		Difficulty:   difficulty,
		Source:       model.SourceGenerated,
		TimeLimit:    generated.TimeLimit,
		PassingScore: generated.PassingScore,
		Questions:    questionsJSON,
		CreatedBy:    in.UserID,
	}
	if err := s.quizzes.Create(quiz); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}

	// Cache insert failure never fails a completed generation.
	entry := &model.QuizCacheEntry{
		ModuleID:           in.ModuleID,
		Technique:          technique,
		Difficulty:         difficulty,
		Fingerprint:        fingerprint,
		ContentFingerprint: contentFP,
		QuizID:             quiz.ID,
		LastUsedAt:         time.Now(),
		Valid:              true,
		ExpiresAt:          time.Now().Add(time.Duration(s.cacheTTL.Load())),
	}
	if err := s.cache.Insert(entry); err != nil {
		logger.Log.Warn("cache insert failed, quiz persisted without cache entry",
			zap.Uint("quizId", quiz.ID), zap.Error(err))
	}

	return &generationOutcome{
		quizID:             quiz.ID,
		quiz:               generated,
		contentFingerprint: contentFP,
		processingMs:       time.Since(start).Milliseconds(),
	}, nil
}

func (s *GenerationService) buildPrompt(content, technique, difficulty string, types []string, count int, focusTopics []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Generate a %s-difficulty quiz with %d questions from the study material below.\n\n", difficulty, count))
	b.WriteString(s.techniques.Instructions([]string{technique}))
	b.WriteString(fmt.Sprintf("\nUse only these question types: %s.\n", strings.Join(types, ", ")))
	if len(focusTopics) > 0 {
		b.WriteString(fmt.Sprintf("Focus on these topics, in priority order: %s.\n", strings.Join(focusTopics, ", ")))
	}
	b.WriteString(`
Respond with a single JSON object of this shape:
{
  "title": "...",
  "description": "...",
  "timeLimit": <minutes>,
  "passingScore": <0-100>,
  "questions": [
    {"id": 1, "type": "multiple_choice", "question": "...", "options": ["a","b","c","d"], "correctAnswer": 0, "explanation": "...", "points": 5}
  ]
}
Multiple choice questions must have exactly 4 options with correctAnswer as the option index. True/false questions use a boolean correctAnswer. Other types use a string or list of strings.

Study material:
`)
	b.WriteString(content)
	return b.String()
}

// failWithFallback marks the row failed and tries the one-shot
// instructor-quiz substitution for the same (module, technique).
func (s *GenerationService) failWithFallback(req *model.GenerationRequest, moduleID uint, technique string, cause error) (*GenerationResult, error) {
	userMsg := userFacingMessage(cause)

	req.Status = model.StatusFailed
	req.ErrorMessage = userMsg
	if err := s.ledger.Save(req); err != nil {
		logger.Log.Error("failed to mark request failed", zap.Uint("requestId", req.ID), zap.Error(err))
	}
	monitoring.GenerationCounter.WithLabelValues(technique, string(model.StatusFailed)).Inc()

	// No materials means no instructor had anything to author against
	// either, but the lookup is cheap and the contract is one attempt.
	fallback, err := s.quizzes.FindInstructorQuiz(moduleID, technique)
	if err != nil {
		logger.Log.Warn("fallback lookup failed", zap.Uint("moduleId", moduleID), zap.Error(err))
	}
	if fallback != nil {
		generated, convErr := fallback.ToGenerated()
		if convErr == nil {
			logger.Log.Info("substituting instructor fallback quiz",
				zap.Uint("requestId", req.ID), zap.Uint("quizId", fallback.ID))
			return &GenerationResult{
				RequestID: req.ID,
				QuizID:    fallback.ID,
				Quiz:      generated,
				Cached:    false,
				Fallback:  true,
				Message:   "a previously generated quiz is being used instead",
			}, nil
		}
		logger.Log.Warn("fallback quiz undecodable", zap.Uint("quizId", fallback.ID), zap.Error(convErr))
	}

	return nil, &GenerationError{Reason: userMsg, Err: cause}
}

func userFacingMessage(err error) string {
	switch {
	case errors.Is(err, util.ErrNoMaterialsFound):
		return "no materials available for this module"
	case errors.Is(err, util.ErrProviderAuth):
		return "generation service is misconfigured, please contact support"
	case errors.Is(err, util.ErrProviderRateLimited):
		return "generation service is busy, please retry later"
	case errors.Is(err, util.ErrProviderSafetyBlocked):
		return "generation was blocked for this content"
	case errors.Is(err, util.ErrUnparsableResponse), errors.Is(err, util.ErrInvalidQuiz):
		return "generation service returned an unusable result, please retry"
	case errors.Is(err, util.ErrPersistence):
		return "failed to save the generated quiz, please retry"
	default:
		return "generation service unavailable, please retry"
	}
}

func (s *GenerationService) recordPreference(ctx context.Context, userID, moduleID uint, technique string) {
	if s.preferences == nil {
		return
	}
	// Fire and forget; preference tracking never affects the request.
	s.preferences.RecordTechnique(ctx, userID, moduleID, technique)
}
