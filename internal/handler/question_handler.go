package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/classware/cbt-backend/internal/middleware"
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/response"
	"github.com/classware/cbt-backend/internal/service"
	"github.com/classware/cbt-backend/internal/validator"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListBanks godoc
// GET /api/v1/admin/qbanks
// Lists all question banks.
func (h *QuestionHandler) ListBanks(c *gin.Context) {
	banks, err := h.questionService.ListBanks(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"qbanks": banks})
}

// CreateBank godoc
// POST /api/v1/admin/qbanks
// Creates a new question bank.
func (h *QuestionHandler) CreateBank(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	authorID := claims.UserID
	bank := &model.QuestionBank{
		AuthorID:    &authorID,
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.questionService.CreateBank(c.Request.Context(), bank); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"qbank": bank})
}

// DeleteBank godoc
// DELETE /api/v1/admin/qbanks/:qbank_id
// Deletes a question bank and its questions.
func (h *QuestionHandler) DeleteBank(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("qbank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.DeleteBank(c.Request.Context(), bankID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListQuestions godoc
// GET /api/v1/admin/qbanks/:qbank_id/questions
// Lists all questions in a bank, answer keys included.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("qbank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.questionService.ListByBank(c.Request.Context(), bankID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/qbanks/:qbank_id/questions
// Adds a question to a bank. The answer key must satisfy the type's
// invariants.
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("qbank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := questionFromRequest(bankID, &req)

	if err := h.questionService.Create(c.Request.Context(), question); err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuestion)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/qbanks/:qbank_id/questions/:question_id
// Removes a single question.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), questionID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/qbanks/:qbank_id/questions
// Bulk replaces all questions in a bank atomically.
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("qbank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = *questionFromRequest(bankID, &req.Questions[i])
	}

	if err := h.questionService.ReplaceAll(c.Request.Context(), bankID, questions); err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuestion)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "questions replaced successfully"})
}

func questionFromRequest(bankID uuid.UUID, req *model.AddQuestionRequest) *model.Question {
	return &model.Question{
		QBankID:   bankID,
		Text:      req.Text,
		ImageURL:  req.ImageURL,
		Type:      model.QuestionType(req.Type),
		Options:   req.Options,
		Prompts:   req.Prompts,
		Matches:   req.Matches,
		AnswerKey: req.AnswerKey,
		OrderNum:  req.OrderNum,
	}
}
