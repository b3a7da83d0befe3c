package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/classware/cbt-backend/internal/model"
)

// EssayReviewRepository handles per-answer essay review records. Rows are
// keyed UNIQUE (exam_id, student_id, question_id); a resubmitted essay
// answer replaces the prior record and resets any suggestion.
type EssayReviewRepository struct {
	pool *pgxpool.Pool
}

// NewEssayReviewRepository creates a new EssayReviewRepository.
func NewEssayReviewRepository(pool *pgxpool.Pool) *EssayReviewRepository {
	return &EssayReviewRepository{pool: pool}
}

// UpsertAnswer records an essay answer awaiting review. A changed answer
// clears the stale suggestion so the oracle re-evaluates.
func (r *EssayReviewRepository) UpsertAnswer(ctx context.Context, examID uuid.UUID, studentID int, questionID uuid.UUID, answerText string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO essay_reviews (exam_id, student_id, question_id, answer_text)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, student_id, question_id) DO UPDATE
		 SET answer_text = EXCLUDED.answer_text,
		     suggested_score = CASE WHEN essay_reviews.answer_text = EXCLUDED.answer_text
		                            THEN essay_reviews.suggested_score ELSE NULL END,
		     feedback = CASE WHEN essay_reviews.answer_text = EXCLUDED.answer_text
		                     THEN essay_reviews.feedback ELSE '' END`,
		examID, studentID, questionID, answerText)
	return err
}

// SetSuggestion stores the oracle's suggested grade and feedback.
func (r *EssayReviewRepository) SetSuggestion(ctx context.Context, id uuid.UUID, score float64, feedback string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE essay_reviews SET suggested_score = $1, feedback = $2 WHERE id = $3`,
		score, feedback, id)
	return err
}

// MarkReviewed records that a human signed off on the review.
func (r *EssayReviewRepository) MarkReviewed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE essay_reviews SET reviewed_at = $1 WHERE id = $2 AND reviewed_at IS NULL`,
		time.Now(), id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetByKey retrieves the review row for one essay answer.
func (r *EssayReviewRepository) GetByKey(ctx context.Context, examID uuid.UUID, studentID int, questionID uuid.UUID) (*model.EssayReview, error) {
	rev := &model.EssayReview{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, question_id, answer_text,
		        suggested_score, feedback, reviewed_at, created_at
		 FROM essay_reviews
		 WHERE exam_id = $1 AND student_id = $2 AND question_id = $3`,
		examID, studentID, questionID,
	).Scan(&rev.ID, &rev.ExamID, &rev.StudentID, &rev.QuestionID, &rev.AnswerText,
		&rev.SuggestedScore, &rev.Feedback, &rev.ReviewedAt, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// ListByExam retrieves all essay reviews for an exam, grouped by student.
func (r *EssayReviewRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.EssayReview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, question_id, answer_text,
		        suggested_score, feedback, reviewed_at, created_at
		 FROM essay_reviews WHERE exam_id = $1
		 ORDER BY student_id, question_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.EssayReview
	for rows.Next() {
		var rev model.EssayReview
		if err := rows.Scan(&rev.ID, &rev.ExamID, &rev.StudentID, &rev.QuestionID, &rev.AnswerText,
			&rev.SuggestedScore, &rev.Feedback, &rev.ReviewedAt, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// ListPendingSuggestions retrieves reviews that still lack an oracle
// suggestion, limited for batch processing.
func (r *EssayReviewRepository) ListPendingSuggestions(ctx context.Context, limit int) ([]model.EssayReview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, question_id, answer_text,
		        suggested_score, feedback, reviewed_at, created_at
		 FROM essay_reviews
		 WHERE suggested_score IS NULL AND answer_text <> ''
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.EssayReview
	for rows.Next() {
		var rev model.EssayReview
		if err := rows.Scan(&rev.ID, &rev.ExamID, &rev.StudentID, &rev.QuestionID, &rev.AnswerText,
			&rev.SuggestedScore, &rev.Feedback, &rev.ReviewedAt, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
