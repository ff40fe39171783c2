package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/config"
	apperrors "github.com/yanqian/health-advisor/pkg/errors"
)

const (
	defaultRecentCalls = 50
	maxRecentCalls     = 500
)

// Handler wires the HTTP transport to the assessment service.
type Handler struct {
	svc    assessment.Service
	calls  assessment.CallLogRepository
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc assessment.Service, calls assessment.CallLogRepository, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		calls:  calls,
		cfg:    cfg,
		logger: logger.With("component", "http.handler"),
	}
}

// Calculate computes metrics and returns AI generated recommendation bullets.
func (h *Handler) Calculate(c *gin.Context) {
	var req assessment.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}

	resp, err := h.svc.Recommend(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, serviceError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DietPlan computes metrics and returns a generated diet plan.
func (h *Handler) DietPlan(c *gin.Context) {
	var req assessment.DietRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}

	resp, err := h.svc.DietPlan(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, serviceError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DietPlanStream streams the diet plan using Server-Sent Events.
func (h *Handler) DietPlanStream(c *gin.Context) {
	var req assessment.DietRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}

	stream, err := h.svc.StreamDietPlan(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, serviceError(err))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for chunk := range stream {
		payload, err := json.Marshal(chunk)
		if err != nil {
			h.logger.Error("marshal chunk failed", "error", err)
			continue
		}
		c.Writer.Write([]byte("data: "))
		c.Writer.Write(payload)
		c.Writer.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// RecentCalls lists the latest gateway call records, newest first.
func (h *Handler) RecentCalls(c *gin.Context) {
	limit := defaultRecentCalls
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a positive integer", err))
			return
		}
		limit = min(parsed, maxRecentCalls)
	}

	records, err := h.calls.Recent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "call_log_failed", "could not load call log", err))
		return
	}
	if records == nil {
		records = []assessment.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// Health reports liveness and the configured provider.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"provider":  h.cfg.LLM.Provider,
		"apiKeySet": strings.TrimSpace(h.cfg.LLM.APIKey) != "",
	})
}

// bindingMessage turns validator failures into a short field-oriented message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return "request body is not valid JSON"
		case errors.As(err, &typeErr):
			return fmt.Sprintf("%s has the wrong type", typeErr.Field)
		}
		return errMessage(err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonFieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
