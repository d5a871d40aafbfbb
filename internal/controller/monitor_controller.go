package controller

import (
	"strconv"
	"time"

	"prova_backend/internal/config"
	"prova_backend/internal/service"
	"prova_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// MonitorController attaches websocket clients to an application's
// monitoring channel and serves the clock reconciliation endpoint.
type MonitorController struct {
	Hub            *service.MonitorHub
	ApplicationSvc *service.ApplicationService
	SubmissionSvc  *service.SubmissionService
	Config         *config.Config
}

func NewMonitorController(hub *service.MonitorHub, appSvc *service.ApplicationService, subSvc *service.SubmissionService, cfg *config.Config) *MonitorController {
	return &MonitorController{
		Hub:            hub,
		ApplicationSvc: appSvc,
		SubmissionSvc:  subSvc,
		Config:         cfg,
	}
}

// @Summary Join an application's monitoring channel
// @Description Proctors authenticate with a token, students with their resume hash.
// @Tags monitoring
// @Param id path int true "application id"
// @Param token query string false "proctor token"
// @Param hash query string false "student resume hash"
// @Router /api/applications/{id}/monitor [get]
func (c *MonitorController) Connect(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid id")
		return
	}
	applicationID := uint(id)

	if _, err := c.ApplicationSvc.Get(applicationID); err != nil {
		util.FailFromError(ctx, err)
		return
	}

	// students identify themselves with the resume hash handed out at entry
	if hash := ctx.Query("hash"); hash != "" {
		sub, err := c.SubmissionSvc.Resume(hash)
		if err != nil || sub.ApplicationID != applicationID {
			util.Unauthorized(ctx)
			return
		}
		service.ServeMonitorWS(c.Hub, ctx.Writer, ctx.Request, service.RoleStudent, applicationID, sub)
		return
	}

	claims, err := util.ParseJWT(ctx.Query("token"), c.Config.JWT.Secret)
	if err != nil {
		util.Unauthorized(ctx)
		return
	}
	if claims.Role != "teacher" && claims.Role != "admin" {
		util.Forbidden(ctx)
		return
	}

	service.ServeMonitorWS(c.Hub, ctx.Writer, ctx.Request, service.RoleProctor, applicationID, nil)
}

// @Summary Server time for clock reconciliation
// @Tags monitoring
// @Produce json
// @Param clientTime query string false "client clock, RFC3339"
// @Success 200 {object} util.Response
// @Router /api/time [get]
func (c *MonitorController) Time(ctx *gin.Context) {
	now := time.Now()
	resp := gin.H{"serverTime": now.UTC().Format(time.RFC3339Nano)}

	if raw := ctx.Query("clientTime"); raw != "" {
		clientTime, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			util.BadRequest(ctx, "invalid clientTime")
			return
		}
		resp["offsetMillis"] = service.ClockOffset(clientTime, now).Milliseconds()
	}

	util.Success(ctx, resp)
}
