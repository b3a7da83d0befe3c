package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/response"
	"github.com/classware/cbt-backend/internal/service"
	"github.com/classware/cbt-backend/internal/validator"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	log           zerolog.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		log:           log.With().Str("component", "review_handler").Logger(),
	}
}

// ListReviews godoc
// GET /api/v1/admin/exams/:exam_id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reviews, err := h.reviewService.ListByExam(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to list essay reviews")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reviews": reviews})
}

// MarkReviewed godoc
// POST /api/v1/admin/reviews/:review_id/approve
func (h *ReviewHandler) MarkReviewed(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("review_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.reviewService.MarkReviewed(c.Request.Context(), reviewID); err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("review_id", reviewID.String()).Msg("Failed to mark review as done")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "review marked as done"})
}

// OverrideScore godoc
// PUT /api/v1/admin/exams/:exam_id/results/:student_id/score
func (h *ReviewHandler) OverrideScore(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.OverrideScoreRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.reviewService.OverrideScore(c.Request.Context(), examID, studentID, req.Score); err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID.String()).Int("student_id", studentID).Msg("Failed to override score")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "score overridden"})
}
