package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classware/cbt-backend/internal/middleware"
	"github.com/classware/cbt-backend/internal/response"
	"github.com/classware/cbt-backend/internal/service"
)

const (
	snapshotInterval  = 10 * time.Second
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// GetMonitorSnapshot godoc
// GET /api/v1/admin/exams/:exam_id/monitor
func (h *MonitorHandler) GetMonitorSnapshot(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.examService.GetByID(c.Request.Context(), examID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	snapshot, err := h.monitorService.GetSnapshot(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to build monitor snapshot")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:exam_id/monitor/stream
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.examService.GetByID(c.Request.Context(), examID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial snapshot so the dashboard renders before the first event lands.
	h.sendSnapshot(c, reqCtx, examID)

	pubsub := h.monitorService.Subscribe(reqCtx, examID)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	snapshotTicker := time.NewTicker(snapshotInterval)
	defer snapshotTicker.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Progress events are already JSON; forward the raw payload.
			c.Writer.Write([]byte("data: {\"type\":\"progress\",\"data\":"))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("}\n\n"))
			c.Writer.Flush()

		case <-snapshotTicker.C:
			// Periodic full snapshot catches up anything a dropped event missed.
			h.sendSnapshot(c, reqCtx, examID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot builds a full monitoring snapshot and writes it as one SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	// Scoped timeout so a slow query never stalls the SSE loop.
	ctx, cancel := context.WithTimeout(parentCtx, snapshotTimeout)
	defer cancel()

	snapshot, err := h.monitorService.GetSnapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to build monitor snapshot")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": snapshot,
	})
	c.Writer.Flush()
}
