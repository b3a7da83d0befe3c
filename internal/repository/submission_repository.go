package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/classware/cbt-backend/internal/model"
)

// SubmissionRepository handles persisted exam submissions. The table is
// keyed UNIQUE (exam_id, student_id); Upsert keeps writes idempotent so a
// retried submission never produces a second row.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Upsert writes a submission, overwriting any prior record for the same
// student and exam.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *model.Submission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (session_id, exam_id, student_id, answers, score, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET session_id = EXCLUDED.session_id,
		     answers = EXCLUDED.answers,
		     score = EXCLUDED.score,
		     submitted_at = EXCLUDED.submitted_at`,
		s.SessionID, s.ExamID, s.StudentID, s.Answers, s.Score, s.SubmittedAt)
	return err
}

// GetByExamAndStudent retrieves one student's submission for an exam.
func (r *SubmissionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, exam_id, student_id, answers, score, submitted_at
		 FROM submissions WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&s.SessionID, &s.ExamID, &s.StudentID, &s.Answers, &s.Score, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SubmissionRow is a submission joined with the student identity, used by
// the results listing and CSV export.
type SubmissionRow struct {
	model.Submission
	StudentNumber string `json:"student_number"`
	StudentName   string `json:"student_name"`
}

// ListByExam retrieves submissions for an exam with student identities,
// paginated and ordered by student number.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]SubmissionRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE exam_id = $1`, examID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT sub.session_id, sub.exam_id, sub.student_id, sub.answers, sub.score, sub.submitted_at,
		        st.student_number, st.name
		 FROM submissions sub
		 JOIN students st ON st.id = sub.student_id
		 WHERE sub.exam_id = $1
		 ORDER BY st.student_number
		 LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionRow
	for rows.Next() {
		var row SubmissionRow
		if err := rows.Scan(&row.SessionID, &row.ExamID, &row.StudentID, &row.Answers,
			&row.Score, &row.SubmittedAt, &row.StudentNumber, &row.StudentName); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}

// ListAllByExam retrieves every submission for an exam without pagination.
func (r *SubmissionRepository) ListAllByExam(ctx context.Context, examID uuid.UUID) ([]SubmissionRow, error) {
	rows, _, err := r.ListByExam(ctx, examID, 1<<30, 0)
	return rows, err
}

// OverrideScore sets an explicit score on an existing submission. The bool
// result reports whether a submission existed.
func (r *SubmissionRepository) OverrideScore(ctx context.Context, examID uuid.UUID, studentID, score int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET score = $1 WHERE exam_id = $2 AND student_id = $3`,
		score, examID, studentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
