package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"studygen_backend/internal/model"
	"studygen_backend/internal/repository"
	"studygen_backend/internal/service"
	"studygen_backend/internal/util"
)

// QuizController exposes the generation pipeline, the quiz catalog, and
// the instructor surface (fallback authoring, cache invalidation).
type QuizController struct {
	Generation *service.GenerationService
	Techniques *service.TechniqueService
	Quizzes    *repository.QuizRepository
	Cache      *repository.QuizCacheRepository
}

func NewQuizController(
	generation *service.GenerationService,
	techniques *service.TechniqueService,
	quizzes *repository.QuizRepository,
	cache *repository.QuizCacheRepository,
) *QuizController {
	return &QuizController{
		Generation: generation,
		Techniques: techniques,
		Quizzes:    quizzes,
		Cache:      cache,
	}
}

type generateQuizRequest struct {
	Technique     string   `json:"technique" binding:"required"`
	Difficulty    string   `json:"difficulty"`
	QuestionTypes []string `json:"questionTypes"`
	NumQuestions  int      `json:"numQuestions"`
	FocusTopics   []string `json:"focusTopics"`
}

type authorQuizRequest struct {
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Technique    string               `json:"technique" binding:"required"`
	Difficulty   string               `json:"difficulty"`
	TimeLimit    int                  `json:"timeLimit"`
	PassingScore int                  `json:"passingScore"`
	Questions    []model.QuizQuestion `json:"questions" binding:"required"`
}

// Generate runs the pipeline synchronously and returns the quiz, a
// cache hit, or a fallback. The ledger row id comes back either way so
// the caller can poll later.
func (c *QuizController) Generate(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	var req generateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Generation.Generate(ctx.Request.Context(), service.GenerateQuizRequest{
		UserID:        claims.UserID,
		ModuleID:      moduleID,
		Technique:     req.Technique,
		Difficulty:    req.Difficulty,
		QuestionTypes: req.QuestionTypes,
		NumQuestions:  req.NumQuestions,
		FocusTopics:   req.FocusTopics,
	})
	if err != nil {
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			if errors.Is(genErr.Err, util.ErrNoMaterialsFound) {
				util.Error(ctx, http.StatusUnprocessableEntity, genErr.Reason)
				return
			}
			util.Error(ctx, http.StatusBadGateway, genErr.Reason)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetRequestStatus is the polling companion to Generate.
func (c *QuizController) GetRequestStatus(ctx *gin.Context) {
	requestID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	status, err := c.Generation.GetRequestStatus(requestID)
	if err != nil {
		if errors.Is(err, util.ErrRequestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// ListMyRequests returns the caller's recent generation history.
func (c *QuizController) ListMyRequests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	statuses, err := c.Generation.GetUserRequests(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, statuses)
}

func (c *QuizController) ListModuleQuizzes(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	quizzes, err := c.Quizzes.FindByModule(moduleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// ListTechniques returns the built-in study technique names.
func (c *QuizController) ListTechniques(ctx *gin.Context) {
	util.Success(ctx, c.Techniques.Techniques())
}

// AuthorQuiz lets an instructor publish a hand-written quiz. These
// double as the fallback pool when live generation fails for the same
// (module, technique).
func (c *QuizController) AuthorQuiz(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	var req authorQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	generated := &model.GeneratedQuiz{
		Title:        req.Title,
		Description:  req.Description,
		Questions:    req.Questions,
		TimeLimit:    req.TimeLimit,
		PassingScore: req.PassingScore,
	}
	if err := generated.Validate(); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	questionsJSON, err := json.Marshal(req.Questions)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	passingScore := req.PassingScore
	if passingScore <= 0 {
		passingScore = 70
	}

	quiz := &model.Quiz{
		ModuleID:     moduleID,
		Title:        req.Title,
		Description:  req.Description,
		Technique:    req.Technique,
		Difficulty:   difficulty,
		Source:       model.SourceInstructor,
		TimeLimit:    req.TimeLimit,
		PassingScore: passingScore,
		Questions:    questionsJSON,
		CreatedBy:    claims.UserID,
	}
	if err := c.Quizzes.Create(quiz); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// InvalidateCache flips the validity flag on every cache entry for a
// module. Used after materials change substantially.
func (c *QuizController) InvalidateCache(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	invalidated, err := c.Cache.InvalidateByModule(moduleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"invalidated": invalidated})
}
