package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/repository"
)

// Review domain errors.
var (
	ErrSubmissionNotFound = errors.New("no submission for this student and exam")
	ErrReviewNotFound     = errors.New("review not found or already signed off")
)

// ReviewService handles the teacher-facing essay review workflow: oracle
// suggestions land in the review table, a teacher signs them off and may
// override the automatic score. Overrides replace the stored score; the
// automatic scorer is never re-run.
type ReviewService struct {
	reviewRepo     *repository.EssayReviewRepository
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo *repository.EssayReviewRepository, submissionRepo *repository.SubmissionRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo:     reviewRepo,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "review_service").Logger(),
	}
}

// ListByExam retrieves all essay reviews for an exam.
func (s *ReviewService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.EssayReview, error) {
	reviews, err := s.reviewRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []model.EssayReview{}
	}
	return reviews, nil
}

// MarkReviewed records a human sign-off on one review.
func (s *ReviewService) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	ok, err := s.reviewRepo.MarkReviewed(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReviewNotFound
	}
	return nil
}

// OverrideScore sets an explicit final score on a student's submission.
func (s *ReviewService) OverrideScore(ctx context.Context, examID uuid.UUID, studentID, score int) error {
	ok, err := s.submissionRepo.OverrideScore(ctx, examID, studentID, score)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubmissionNotFound
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("score", score).
		Msg("Score overridden")
	return nil
}
