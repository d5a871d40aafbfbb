package controller

import (
	"strconv"

	"prova_backend/internal/service"
	"prova_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

// @Summary Create an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.AssessmentRequest true "assessment"
// @Success 201 {object} util.Response
// @Router /api/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	creatorID := uint(0)
	if claims != nil {
		creatorID = claims.UserID
	}

	assessment, err := c.Service.Create(creatorID, req)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Created(ctx, assessment)
}

// @Summary List assessments
// @Tags assessments
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "page"
// @Param limit query int false "limit"
// @Success 200 {object} util.Response
// @Router /api/assessments [get]
func (c *AssessmentController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)

	assessments, total, err := c.Service.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  assessments,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary Get assessment detail
// @Tags assessments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	assessment, err := c.Service.Get(uint(id))
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, assessment)
}

// @Summary Update an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "assessment id"
// @Param body body service.AssessmentRequest true "assessment"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assessment, err := c.Service.Update(uint(id), req)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, assessment)
}

// @Summary Delete an assessment
// @Tags assessments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if err := c.Service.Delete(uint(id)); err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

func pagination(ctx *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
