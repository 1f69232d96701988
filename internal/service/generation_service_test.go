package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studygen_backend/internal/model"
	"studygen_backend/internal/util"
	"studygen_backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeContent struct {
	text string
	err  error
}

func (f *fakeContent) AssembleModuleContent(moduleID uint) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, util.ContentFingerprint(f.text), nil
}

type fakeCache struct {
	entries   map[string]*model.QuizCacheEntry
	lookupErr error
	insertErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*model.QuizCacheEntry)}
}

func cacheKey(moduleID uint, technique, difficulty, fingerprint string) string {
	return fmt.Sprintf("%d:%s:%s:%s", moduleID, technique, difficulty, fingerprint)
}

func (f *fakeCache) Lookup(moduleID uint, technique, difficulty, fingerprint string) (*model.QuizCacheEntry, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	entry, ok := f.entries[cacheKey(moduleID, technique, difficulty, fingerprint)]
	if !ok {
		return nil, nil
	}
	entry.UseCount++
	entry.LastUsedAt = time.Now()
	return entry, nil
}

func (f *fakeCache) Insert(entry *model.QuizCacheEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries[cacheKey(entry.ModuleID, entry.Technique, entry.Difficulty, entry.Fingerprint)] = entry
	return nil
}

type fakeQuizStore struct {
	quizzes    map[uint]*model.Quiz
	nextID     uint
	instructor *model.Quiz
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{quizzes: make(map[uint]*model.Quiz), nextID: 1}
}

func (f *fakeQuizStore) Create(quiz *model.Quiz) error {
	quiz.ID = f.nextID
	f.nextID++
	f.quizzes[quiz.ID] = quiz
	return nil
}

func (f *fakeQuizStore) FindByID(id uint) (*model.Quiz, error) {
	quiz, ok := f.quizzes[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return quiz, nil
}

func (f *fakeQuizStore) FindInstructorQuiz(moduleID uint, technique string) (*model.Quiz, error) {
	if f.instructor != nil && f.instructor.ModuleID == moduleID && f.instructor.Technique == technique {
		return f.instructor, nil
	}
	return nil, nil
}

type fakeLedger struct {
	rows   map[uint]*model.GenerationRequest
	nextID uint
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[uint]*model.GenerationRequest), nextID: 1}
}

func (f *fakeLedger) Create(req *model.GenerationRequest) error {
	req.ID = f.nextID
	f.nextID++
	copied := *req
	f.rows[req.ID] = &copied
	return nil
}

func (f *fakeLedger) Save(req *model.GenerationRequest) error {
	copied := *req
	f.rows[req.ID] = &copied
	return nil
}

func (f *fakeLedger) FindByID(id uint) (*model.GenerationRequest, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return row, nil
}

func (f *fakeLedger) FindByUser(userID uint, limit int) ([]model.GenerationRequest, error) {
	var rows []model.GenerationRequest
	for id := f.nextID; id > 0 && len(rows) < limit; id-- {
		if row, ok := f.rows[id]; ok && row.UserID == userID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

const providerQuizJSON = `{
  "title": "Mens Rea Review",
  "questions": [
    {"type": "short_answer", "question": "Define mens rea.", "correctAnswer": "guilty mind"},
    {"type": "short_answer", "question": "Name one category of mens rea.", "correctAnswer": ["intent", "recklessness"]},
    {"type": "fill_in_blank", "question": "Mens rea means ____ mind.", "correctAnswer": "guilty"},
    {"type": "definition_recall", "question": "What is the counterpart of mens rea?", "correctAnswer": "actus reus"},
    {"type": "short_answer", "question": "Why does mens rea matter for liability?", "correctAnswer": "it establishes culpable intent"}
  ]
}`

type pipelineFixture struct {
	svc      *GenerationService
	provider *fakeProvider
	cache    *fakeCache
	quizzes  *fakeQuizStore
	ledger   *fakeLedger
}

func newPipelineFixture() *pipelineFixture {
	provider := &fakeProvider{response: providerQuizJSON}
	cache := newFakeCache()
	quizzes := newFakeQuizStore()
	ledger := newFakeLedger()

	svc := &GenerationService{
		techniques: NewTechniqueService(),
		provider:   provider,
		content:    &fakeContent{text: "Mens rea means guilty mind."},
		parser:     NewResponseParser(),
		cache:      cache,
		quizzes:    quizzes,
		ledger:     ledger,
	}
	svc.SetCacheTTL(time.Hour)

	return &pipelineFixture{svc: svc, provider: provider, cache: cache, quizzes: quizzes, ledger: ledger}
}

func mensReaRequest() GenerateQuizRequest {
	return GenerateQuizRequest{
		UserID:     7,
		ModuleID:   1,
		Technique:  "active_recall",
		Difficulty: "easy",
	}
}

func TestGenerateEndToEndThenCacheHit(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.Quiz.Questions, 5)
	assert.Equal(t, 1, f.provider.calls)

	row, err := f.ledger.FindByID(first.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, row.Status)

	second, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.QuizID, second.QuizID)
	// The provider is never consulted on a hit.
	assert.Equal(t, 1, f.provider.calls)

	row, err = f.ledger.FindByID(second.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCached, row.Status)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestCacheIdempotenceSurvivesProviderFailure(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)

	// Break the provider; the second identical request must still succeed.
	f.provider.err = util.ErrProviderUnavailable

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.True(t, result.Cached)
}

func TestExplicitAndImplicitTypeRequestsShareCacheEntry(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)

	// Same types spelled out explicitly, in a different order.
	req := mensReaRequest()
	req.QuestionTypes = []string{"definition_recall", "short_answer", "fill_in_blank"}

	second, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.QuizID, second.QuizID)
}

func TestRequestedCountDoesNotAffectCacheKey(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)

	req := mensReaRequest()
	req.NumQuestions = 20

	second, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.QuizID, second.QuizID)
}

func TestCacheLookupFailureDegradesToLiveGeneration(t *testing.T) {
	f := newPipelineFixture()
	f.cache.lookupErr = util.ErrStoreUnavailable

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, f.provider.calls)
}

func TestCacheInsertFailureDoesNotFailRequest(t *testing.T) {
	f := newPipelineFixture()
	f.cache.insertErr = util.ErrStoreUnavailable

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.False(t, result.Cached)

	row, err := f.ledger.FindByID(result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, row.Status)
}

func TestNoMaterialsIsHardStop(t *testing.T) {
	f := newPipelineFixture()
	f.svc.content = &fakeContent{err: util.ErrNoMaterialsFound}

	_, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, genErr.Err, util.ErrNoMaterialsFound)
	assert.Equal(t, "no materials available for this module", genErr.Reason)
	assert.Equal(t, 0, f.provider.calls)
}

func TestProviderFailureFallsBackToInstructorQuiz(t *testing.T) {
	f := newPipelineFixture()
	f.provider.err = util.ErrProviderUnavailable

	questions, _ := json.Marshal([]model.QuizQuestion{{
		ID:            1,
		Type:          model.TrueFalse,
		Question:      "Mens rea means guilty mind.",
		CorrectAnswer: model.BoolAnswer(true),
		Points:        5,
	}})
	f.quizzes.instructor = &model.Quiz{
		BaseModel: model.BaseModel{ID: 99},
		ModuleID:  1,
		Title:     "Backup quiz",
		Technique: "active_recall",
		Source:    model.SourceInstructor,
		Questions: questions,
		TimeLimit: 10,
	}

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.False(t, result.Cached)
	assert.Equal(t, uint(99), result.QuizID)
	assert.Equal(t, "a previously generated quiz is being used instead", result.Message)

	// The ledger still records the attempt as failed.
	row, err := f.ledger.FindByID(result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, row.Status)
}

func TestProviderFailureWithoutFallbackReturnsError(t *testing.T) {
	f := newPipelineFixture()
	f.provider.err = util.ErrProviderRateLimited

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	assert.Nil(t, result)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, genErr.Err, util.ErrProviderRateLimited)
	assert.Equal(t, "generation service is busy, please retry later", genErr.Reason)
}

func TestUnparsableResponseFailsRequest(t *testing.T) {
	f := newPipelineFixture()
	f.provider.response = "I cannot generate a quiz."

	_, err := f.svc.Generate(context.Background(), mensReaRequest())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, genErr.Err, util.ErrUnparsableResponse)
}

func TestGetRequestStatusReflectsTerminalState(t *testing.T) {
	f := newPipelineFixture()

	result, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)

	status, err := f.svc.GetRequestStatus(result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status.Status)
	require.NotNil(t, status.QuizID)
	assert.Equal(t, result.QuizID, *status.QuizID)
	require.NotNil(t, status.Quiz)
	assert.Len(t, status.Quiz.Questions, 5)
}

func TestGetUserRequestsListsHistoryNewestFirst(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), mensReaRequest())
	require.NoError(t, err)

	statuses, err := f.svc.GetUserRequests(7, 20)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, second.RequestID, statuses[0].RequestID)
	assert.Equal(t, model.StatusCached, statuses[0].Status)
	assert.Equal(t, first.RequestID, statuses[1].RequestID)
	assert.Equal(t, model.StatusCompleted, statuses[1].Status)

	// Other learners see nothing.
	other, err := f.svc.GetUserRequests(8, 20)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGetRequestStatusUnknownID(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.svc.GetRequestStatus(12345)
	assert.ErrorIs(t, err, util.ErrRequestNotFound)
}

func TestDifficultyDefaultsToMedium(t *testing.T) {
	f := newPipelineFixture()

	req := mensReaRequest()
	req.Difficulty = ""

	result, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)

	row, err := f.ledger.FindByID(result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "medium", row.Difficulty)
}
