package controller

import (
	"strconv"

	"prova_backend/internal/model"
	"prova_backend/internal/service"
	"prova_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Service      *service.SubmissionService
	ViolationSvc *service.ViolationService
}

func NewSubmissionController(svc *service.SubmissionService, violationSvc *service.ViolationService) *SubmissionController {
	return &SubmissionController{Service: svc, ViolationSvc: violationSvc}
}

// @Summary Enter an application with an access code
// @Tags submissions
// @Accept json
// @Produce json
// @Param body body service.EnterRequest true "access code and student identity"
// @Success 201 {object} util.Response
// @Router /api/enter [post]
func (c *SubmissionController) Enter(ctx *gin.Context) {
	var req service.EnterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.Enter(req)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	// the hash is the student's resume token; only this response carries it
	util.Created(ctx, gin.H{
		"submission":   sub,
		"hash":         sub.Hash,
		"deliveryCode": sub.DeliveryCode,
	})
}

// @Summary Resume a submission by its opaque hash
// @Tags submissions
// @Produce json
// @Param hash path string true "resume hash"
// @Success 200 {object} util.Response
// @Router /api/sessions/{hash} [get]
func (c *SubmissionController) Resume(ctx *gin.Context) {
	sub, err := c.Service.Resume(ctx.Param("hash"))
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// @Summary Deliver answers for a submission
// @Tags submissions
// @Accept json
// @Produce json
// @Param hash path string true "resume hash"
// @Param body body service.SubmitRequest true "answers"
// @Success 200 {object} util.Response
// @Router /api/sessions/{hash}/deliver [post]
func (c *SubmissionController) Deliver(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.Submit(ctx.Param("hash"), req)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// @Summary List submissions of an application
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "application id"
// @Success 200 {object} util.Response
// @Router /api/applications/{id}/submissions [get]
func (c *SubmissionController) ListByApplication(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid id")
		return
	}

	subs, err := c.Service.ListByApplication(uint(id))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, subs)
}

type confirmDeliveryRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

// @Summary Confirm a student's delivery code
// @Tags submissions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Param body body confirmDeliveryRequest true "presented code"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/confirm-delivery [post]
func (c *SubmissionController) ConfirmDelivery(ctx *gin.Context) {
	var req confirmDeliveryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.ConfirmDelivery(ctx.Param("id"), req.Code)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// @Summary Reopen a delivered submission
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/reopen [post]
func (c *SubmissionController) Reopen(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Reopen)
}

// @Summary Pause one student's submission
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/pause [post]
func (c *SubmissionController) Pause(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Pause)
}

// @Summary Resume one student's paused submission
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/unpause [post]
func (c *SubmissionController) Unpause(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Unpause)
}

// @Summary Mark a submission abandoned
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/abandon [post]
func (c *SubmissionController) Abandon(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Abandon)
}

// @Summary Close a submission
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/close [post]
func (c *SubmissionController) Close(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Close)
}

// @Summary Cancel a submission
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/cancel [post]
func (c *SubmissionController) Cancel(ctx *gin.Context) {
	c.proctorAction(ctx, c.Service.Cancel)
}

// @Summary Grade one discursive answer
// @Tags submissions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param answerId path string true "answer id"
// @Param body body service.GradeRequest true "score and feedback"
// @Success 200 {object} util.Response
// @Router /api/answers/{answerId}/grade [put]
func (c *SubmissionController) GradeAnswer(ctx *gin.Context) {
	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.GradeAnswer(ctx.Param("answerId"), req)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// @Summary List a submission's violations
// @Tags submissions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/violations [get]
func (c *SubmissionController) ListViolations(ctx *gin.Context) {
	violations, err := c.ViolationSvc.List(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, violations)
}

type reportViolationRequest struct {
	Type string `json:"type" binding:"required"`
}

// @Summary Record a violation against a submission
// @Tags submissions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "submission id"
// @Param body body reportViolationRequest true "infraction type"
// @Success 201 {object} util.Response
// @Router /api/submissions/{id}/violations [post]
func (c *SubmissionController) RecordViolation(ctx *gin.Context) {
	var req reportViolationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	violation, err := c.ViolationSvc.Record(ctx.Param("id"), req.Type)
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Created(ctx, violation)
}

func (c *SubmissionController) proctorAction(ctx *gin.Context, action func(string) (*model.Submission, error)) {
	sub, err := action(ctx.Param("id"))
	if err != nil {
		util.FailFromError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}
