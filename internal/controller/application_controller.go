package controller

import (
	"strconv"

	"prova_backend/internal/model"
	"prova_backend/internal/service"
	"prova_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ApplicationController struct {
	Service *service.ApplicationService
}

func NewApplicationController(svc *service.ApplicationService) *ApplicationController {
	return &ApplicationController{Service: svc}
}

type createApplicationRequest struct {
	AssessmentID uint `json:"assessmentId" binding:"required"`
}

// @Summary Open a new application of an assessment
// @Tags applications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body createApplicationRequest true "assessment reference"
// @Success 201 {object} util.Response
// @Router /api/applications [post]
func (c *ApplicationController) Create(ctx *gin.Context) {
	var req createApplicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	app, err := c.Service.Create(req.AssessmentID)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Created(ctx, app)
}

// @Summary List applications
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/applications [get]
func (c *ApplicationController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)

	apps, total, err := c.Service.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  apps,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary Get application detail
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id} [get]
func (c *ApplicationController) Get(ctx *gin.Context) {
	id, ok := c.applicationID(ctx)
	if !ok {
		return
	}

	app, err := c.Service.Get(id)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, app)
}

// @Summary Full monitoring snapshot for resynchronization
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/sync [get]
func (c *ApplicationController) Sync(ctx *gin.Context) {
	id, ok := c.applicationID(ctx)
	if !ok {
		return
	}

	snapshot, err := c.Service.Snapshot(id)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, snapshot)
}

// @Summary Schedule the application for its assessment's configured start
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/schedule [post]
func (c *ApplicationController) Schedule(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Schedule)
}

// @Summary Start the application now
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/start [post]
func (c *ApplicationController) Start(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Start)
}

// @Summary Pause the application, freezing remaining time
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/pause [post]
func (c *ApplicationController) Pause(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Pause)
}

// @Summary Resume a paused application
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/resume [post]
func (c *ApplicationController) Resume(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Resume)
}

// @Summary Finish the application
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/finish [post]
func (c *ApplicationController) Finish(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Finish)
}

// @Summary Conclude the application (terminal)
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/conclude [post]
func (c *ApplicationController) Conclude(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.Conclude)
}

// @Summary Cancel the application (terminal)
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/cancel [post]
func (c *ApplicationController) Cancel(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.CancelApplication)
}

type adjustTimeRequest struct {
	DeltaSeconds int `json:"deltaSeconds" binding:"required"`
}

// @Summary Shift the application end time by a delta
// @Tags applications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Param body body adjustTimeRequest true "seconds to add (negative subtracts)"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/adjust-time [post]
func (c *ApplicationController) AdjustTime(ctx *gin.Context) {
	id, ok := c.applicationID(ctx)
	if !ok {
		return
	}

	var req adjustTimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	app, err := c.Service.AdjustTime(id, req.DeltaSeconds)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, app)
}

// @Summary Restart the countdown with the full time limit
// @Tags applications
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/reset-timer [post]
func (c *ApplicationController) ResetTimer(ctx *gin.Context) {
	c.lifecycle(ctx, c.Service.ResetTimer)
}

func (c *ApplicationController) lifecycle(ctx *gin.Context, action func(uint) (*model.Application, error)) {
	id, ok := c.applicationID(ctx)
	if !ok {
		return
	}

	app, err := action(id)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, app)
}

func (c *ApplicationController) applicationID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid id")
		return 0, false
	}
	return uint(id), true
}
