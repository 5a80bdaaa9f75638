// Package api serves the estimator over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"shopfloor-estimator/internal/estimator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the part of estimator.Engine the handlers use.
type Service interface {
	Suggest(ctx context.Context, req estimator.Request) (estimator.Result, error)
	DrawingHistory(ctx context.Context, drawingNumber string) ([]estimator.HistoryRow, error)
	LastCompletedOrder(ctx context.Context, drawingNumber string) (*estimator.CompletedOrder, error)
	LastCompletedOrderDetail(ctx context.Context, drawingNumber string) (*estimator.CompletedOrderDetail, error)
	DrawingStatistics(ctx context.Context, drawingNumber string) (estimator.DrawingStatistics, error)
	OperationTimeAnalytics(ctx context.Context, operationType, machineType string) ([]estimator.TimeAnalytics, error)
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success  bool     `json:"success"`
	Source   string   `json:"source,omitempty"`
	Data     any      `json:"data"`
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Handler holds the estimator HTTP handlers.
type Handler struct {
	svc Service
	log *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Suggestions handles GET /operations/suggestions.
func (h *Handler) Suggestions(c *gin.Context) {
	drawing := c.Query("drawingNumber")
	qty, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, envelope{Error: "quantity must be an integer"})
		return
	}

	res, err := h.svc.Suggest(c.Request.Context(), estimator.Request{
		DrawingNumber: drawing,
		Quantity:      qty,
		WorkType:      c.Query("workType"),
	})
	if err != nil {
		h.fail(c, "suggestions", err)
		return
	}

	body := envelope{Success: true, Source: string(res.Source), Data: res.Suggestions}
	switch {
	case len(res.Suggestions) == 0:
		body.Message = fmt.Sprintf("no historical data for drawing %s", drawing)
	case res.Source == estimator.SourceFallback:
		body.Message = fmt.Sprintf("no history for drawing %s, %d generic suggestions", drawing, len(res.Suggestions))
	default:
		body.Message = fmt.Sprintf("%d suggestions from the history of drawing %s", len(res.Suggestions), drawing)
	}
	if res.Degraded != nil {
		body.Warnings = append(body.Warnings, "fallback statistics unavailable")
	}
	c.JSON(http.StatusOK, body)
}

type drawingHistory struct {
	History            []estimator.HistoryRow      `json:"history"`
	Statistics         estimator.DrawingStatistics `json:"statistics"`
	LastCompletedOrder *estimator.CompletedOrder   `json:"lastCompletedOrder"`
}

// DrawingHistory handles GET /drawings/:drawingNumber/history. A failure to
// find the last completed order degrades to null with a warning.
func (h *Handler) DrawingHistory(c *gin.Context) {
	ctx := c.Request.Context()
	drawing := c.Param("drawingNumber")

	history, err := h.svc.DrawingHistory(ctx, drawing)
	if err != nil {
		h.fail(c, "drawing history", err)
		return
	}
	stats, err := h.svc.DrawingStatistics(ctx, drawing)
	if err != nil {
		h.fail(c, "drawing statistics", err)
		return
	}

	body := envelope{Success: true}
	last, err := h.svc.LastCompletedOrder(ctx, drawing)
	if err != nil {
		h.log.Warn("last completed order unavailable", zap.String("drawing_number", drawing), zap.Error(err))
		body.Warnings = append(body.Warnings, "last completed order unavailable")
		last = nil
	}

	body.Data = drawingHistory{History: history, Statistics: stats, LastCompletedOrder: last}
	body.Message = fmt.Sprintf("drawing %s: %d orders, %d operations", drawing, stats.OrderCount, stats.OperationCount)
	c.JSON(http.StatusOK, body)
}

// LastCompleted handles GET /drawings/:drawingNumber/last-completed.
func (h *Handler) LastCompleted(c *gin.Context) {
	drawing := c.Param("drawingNumber")
	detail, err := h.svc.LastCompletedOrderDetail(c.Request.Context(), drawing)
	if err != nil {
		h.fail(c, "last completed order", err)
		return
	}
	if detail == nil {
		c.JSON(http.StatusOK, envelope{Success: true, Message: fmt.Sprintf("no completed orders for drawing %s", drawing)})
		return
	}
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    detail,
		Message: fmt.Sprintf("last completed order %d for drawing %s", detail.Order.ID, drawing),
	})
}

// Statistics handles GET /drawings/:drawingNumber/statistics.
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.svc.DrawingStatistics(c.Request.Context(), c.Param("drawingNumber"))
	if err != nil {
		h.fail(c, "drawing statistics", err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: stats})
}

// TimeAnalytics handles GET /analytics/time.
func (h *Handler) TimeAnalytics(c *gin.Context) {
	rows, err := h.svc.OperationTimeAnalytics(c.Request.Context(), c.Query("operationType"), c.Query("machineType"))
	if err != nil {
		h.fail(c, "time analytics", err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: rows})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, estimator.ErrValidation):
		status = http.StatusBadRequest
	case estimator.IsDataAccess(err):
		status = http.StatusBadGateway
	}
	if status != http.StatusBadRequest {
		h.log.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	c.JSON(status, envelope{Message: op + " failed", Error: err.Error()})
}
