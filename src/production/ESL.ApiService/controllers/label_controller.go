package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/esl.label_server/src/production/ESL.ApiService/implementation/services"
	"gitlab.com/maplesense1/esl.label_server/src/production/ESL.ApiService/middleware"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
	api_models "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models/api"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
)

// Error bodies returned to devices and operators
const (
	msgMissingFields  = "Missing tagId, name, or price"
	msgMissingAddress = "Missing tag address"
	msgNotRegistered  = "Tag not registered in system"
	msgRenderFailed   = "Failed to render label image"
	msgPublishFailed  = "Label saved but could not be pushed to the device"
	msgServerError    = "Server Error"
)

// LabelController handles device check-ins and operator updates
type LabelController struct {
	service *services.LabelService
	logger  *logger.Logger
}

// NewLabelController creates a new label controller
func NewLabelController(service *services.LabelService, logger *logger.Logger) *LabelController {
	return &LabelController{
		service: service,
		logger:  logger.WithComponent("label-controller"),
	}
}

// RegisterRoutes registers the label routes with Gin
func (c *LabelController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// Device facing
		api.GET("/checkin/:mac", c.CheckIn)

		// Operator facing
		api.POST("/update-tag", c.UpdateTag)
		api.GET("/labels", c.ListLabels)
		api.GET("/labels/:mac", c.GetLabel)
		api.GET("/labels/:mac/logs", c.ListTelemetry)
	}
}

func (c *LabelController) CheckIn(ctx *gin.Context) {
	req := services.CheckInRequest{
		Address:      ctx.Param("mac"),
		BatteryLevel: queryInt(ctx, "battery"),
		WifiSignal:   queryInt(ctx, "wifi"),
		IPAddress:    strings.TrimSpace(ctx.Query("ip")),
	}
	if req.IPAddress == "" {
		req.IPAddress = ctx.ClientIP()
	}

	cfg, err := c.service.CheckIn(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": msgMissingAddress})
			return
		}
		c.logger.WithRequestID(middleware.GetRequestID(ctx)).WithAddress(req.Address).ErrorWithError(err, "Check-in failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
		return
	}

	ctx.JSON(http.StatusOK, cfg)
}

func (c *LabelController) UpdateTag(ctx *gin.Context) {
	var req api_models.UpdateTagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
		return
	}

	resp, err := c.service.UpdateTag(ctx.Request.Context(), req)
	if err != nil {
		log := c.logger.WithRequestID(middleware.GetRequestID(ctx)).WithAddress(req.TagID)
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
		case errors.Is(err, interfaces.ErrNotRegistered):
			ctx.JSON(http.StatusNotFound, gin.H{"error": msgNotRegistered})
		case errors.Is(err, services.ErrRenderFailed):
			log.ErrorWithError(err, "Update render failed")
			ctx.JSON(http.StatusInternalServerError, api_models.ErrorResponse{Error: msgRenderFailed, Persisted: true})
		case errors.Is(err, services.ErrPublishFailed):
			log.ErrorWithError(err, "Update publish failed")
			ctx.JSON(http.StatusBadGateway, api_models.ErrorResponse{Error: msgPublishFailed, Persisted: true})
		default:
			log.ErrorWithError(err, "Update failed")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
		}
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *LabelController) ListLabels(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "10"))

	result, err := c.service.ListLabels(ctx.Request.Context(), page, pageSize)
	if err != nil {
		c.logger.ErrorWithError(err, "List labels failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *LabelController) GetLabel(ctx *gin.Context) {
	label, err := c.service.GetLabel(ctx.Request.Context(), ctx.Param("mac"))
	if err != nil {
		c.readError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, label)
}

func (c *LabelController) ListTelemetry(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	logs, err := c.service.ListTelemetry(ctx.Request.Context(), ctx.Param("mac"), limit)
	if err != nil {
		c.readError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": logs})
}

func (c *LabelController) readError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msgMissingAddress})
	case errors.Is(err, interfaces.ErrNotRegistered):
		ctx.JSON(http.StatusNotFound, gin.H{"error": msgNotRegistered})
	default:
		c.logger.WithAddress(ctx.Param("mac")).ErrorWithError(err, "Label read failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	}
}

// queryInt parses an optional integer query parameter. Missing or malformed
// values come back nil.
func queryInt(ctx *gin.Context, key string) *int {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
