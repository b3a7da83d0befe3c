package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/grading"
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/repository"
)

// EssayWorker consumes essay_review_queue, stores each essay answer as a
// review record and asks the oracle for a suggested grade. Runs only when
// an oracle is configured; with no oracle the queue is still drained so
// answers land in the review table for fully manual grading.
type EssayWorker struct {
	reviews *repository.EssayReviewRepository
	rdb     *redis.Client
	oracle  grading.EssayOracle
	log     zerolog.Logger
}

// NewEssayWorker creates a new EssayWorker. oracle may be nil.
func NewEssayWorker(reviews *repository.EssayReviewRepository, rdb *redis.Client, oracle grading.EssayOracle, log zerolog.Logger) *EssayWorker {
	return &EssayWorker{
		reviews: reviews,
		rdb:     rdb,
		oracle:  oracle,
		log:     log.With().Str("component", "essay_worker").Logger(),
	}
}

// EssayPayload is the queue message for one essay answer to review.
type EssayPayload struct {
	ExamID       string `json:"exam_id"`
	StudentID    int    `json:"student_id"`
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
}

// Start begins the worker loop. Call in a goroutine.
func (w *EssayWorker) Start(ctx context.Context) {
	w.log.Info().Bool("oracle", w.oracle != nil).Msg("EssayWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("EssayWorker stopping...")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *EssayWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.EssayReviewQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload EssayPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.process(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Str("exam_id", payload.ExamID).
			Msg("Review error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.EssayReviewQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *EssayWorker) process(ctx context.Context, p *EssayPayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return err
	}

	if err := w.reviews.UpsertAnswer(ctx, examID, p.StudentID, questionID, p.AnswerText); err != nil {
		return err
	}

	if w.oracle == nil || p.AnswerText == "" {
		return nil
	}

	question := model.Question{
		ID:   questionID,
		Text: p.QuestionText,
		Type: model.QuestionTypeEssay,
	}
	suggestion, err := w.oracle.SuggestGrade(ctx, question, p.AnswerText)
	if err != nil {
		// The answer is already stored; a failed suggestion is not worth
		// blocking the queue over.
		w.log.Warn().Err(err).Str("question_id", p.QuestionID).Msg("oracle suggestion failed")
		return nil
	}

	rev, err := w.reviews.GetByKey(ctx, examID, p.StudentID, questionID)
	if err != nil {
		return err
	}
	normalized := suggestion.Score / suggestion.MaxScore * 100
	return w.reviews.SetSuggestion(ctx, rev.ID, normalized, suggestion.Feedback)
}
