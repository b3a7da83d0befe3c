package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/repository"
)

// QuestionService handles question bank business logic. Every write path
// runs the per-type answer-key validation so an invalid question never
// reaches a published exam.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// ListBanks retrieves all question banks.
func (s *QuestionService) ListBanks(ctx context.Context) ([]model.QuestionBank, error) {
	banks, err := s.questionRepo.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	if banks == nil {
		banks = []model.QuestionBank{}
	}
	return banks, nil
}

// GetBank retrieves a specific question bank.
func (s *QuestionService) GetBank(ctx context.Context, bankID uuid.UUID) (*model.QuestionBank, error) {
	return s.questionRepo.GetBank(ctx, bankID)
}

// CreateBank creates a new question bank.
func (s *QuestionService) CreateBank(ctx context.Context, bank *model.QuestionBank) error {
	return s.questionRepo.CreateBank(ctx, bank)
}

// DeleteBank deletes a question bank and its questions.
func (s *QuestionService) DeleteBank(ctx context.Context, bankID uuid.UUID) error {
	return s.questionRepo.DeleteBank(ctx, bankID)
}

// ListByBank retrieves all questions in a bank.
func (s *QuestionService) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	questions, err := s.questionRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Create validates and adds a question to a bank.
func (s *QuestionService) Create(ctx context.Context, question *model.Question) error {
	if err := question.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return s.questionRepo.Create(ctx, question)
}

// Delete removes a single question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.Delete(ctx, id)
}

// ReplaceAll validates and replaces every question in a bank atomically.
func (s *QuestionService) ReplaceAll(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		questions[i].QBankID = bankID
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidQuestion, i, err)
		}
	}
	return s.questionRepo.ReplaceForBank(ctx, bankID, questions)
}
