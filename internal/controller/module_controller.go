package controller

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"studygen_backend/internal/model"
	"studygen_backend/internal/repository"
	"studygen_backend/internal/util"
)

// ModuleController serves course modules and the study materials quiz
// generation draws from.
type ModuleController struct {
	Modules   *repository.ModuleRepository
	Materials *repository.MaterialRepository
}

func NewModuleController(modules *repository.ModuleRepository, materials *repository.MaterialRepository) *ModuleController {
	return &ModuleController{Modules: modules, Materials: materials}
}

type createModuleRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type createMaterialRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

func (c *ModuleController) ListModules(ctx *gin.Context) {
	modules, err := c.Modules.List()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

func (c *ModuleController) GetModule(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	module, err := c.Modules.FindByID(moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

func (c *ModuleController) CreateModule(ctx *gin.Context) {
	var req createModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	module := &model.CourseModule{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     claims.UserID,
		Order:       req.Order,
	}
	if err := c.Modules.Create(module); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

func (c *ModuleController) ListMaterials(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	materials, err := c.Materials.FindByModule(moduleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, materials)
}

func (c *ModuleController) CreateMaterial(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	var req createMaterialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if _, err := c.Modules.FindByID(moduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	material := &model.Material{
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		UploaderID:  claims.UserID,
		Order:       req.Order,
	}
	if err := c.Materials.Create(material); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, material)
}

func (c *ModuleController) DeleteMaterial(ctx *gin.Context) {
	materialID, ok := parseUintParam(ctx, "materialId")
	if !ok {
		return
	}

	if err := c.Materials.Delete(materialID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
