package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/classware/cbt-backend/internal/model"
)

// QuestionRepository handles question bank and question data access.
// The jsonb columns (options, prompts, matches, answer_key) round-trip
// through pgx's json codec.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// CreateBank inserts a new question bank.
func (r *QuestionRepository) CreateBank(ctx context.Context, b *model.QuestionBank) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (author_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		b.AuthorID, b.Name, b.Description,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetBank retrieves a question bank by id.
func (r *QuestionRepository) GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, author_id, name, description, created_at, updated_at
		 FROM question_banks WHERE id = $1`, id,
	).Scan(&b.ID, &b.AuthorID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBanks retrieves all question banks, newest first.
func (r *QuestionRepository) ListBanks(ctx context.Context) ([]model.QuestionBank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, name, description, created_at, updated_at
		 FROM question_banks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []model.QuestionBank
	for rows.Next() {
		var b model.QuestionBank
		if err := rows.Scan(&b.ID, &b.AuthorID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// DeleteBank removes a question bank and, via cascade, its questions.
func (r *QuestionRepository) DeleteBank(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM question_banks WHERE id = $1`, id)
	return err
}

// ListByBank retrieves all questions in a bank, ordered by order_num.
func (r *QuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, qbank_id, question_text, image_url, question_type,
		        options, prompts, matches, answer_key, order_num
		 FROM questions WHERE qbank_id = $1
		 ORDER BY order_num`, bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QBankID, &q.Text, &q.ImageURL, &q.Type,
			&q.Options, &q.Prompts, &q.Matches, &q.AnswerKey, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (qbank_id, question_text, image_url, question_type,
		                        options, prompts, matches, answer_key, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		q.QBankID, q.Text, q.ImageURL, q.Type,
		q.Options, q.Prompts, q.Matches, q.AnswerKey, q.OrderNum,
	).Scan(&q.ID)
}

// Delete removes a single question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// ReplaceForBank atomically replaces all questions in a bank.
func (r *QuestionRepository) ReplaceForBank(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE qbank_id = $1`, bankID); err != nil {
		return err
	}
	for i := range questions {
		q := &questions[i]
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (qbank_id, question_text, image_url, question_type,
			                        options, prompts, matches, answer_key, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			bankID, q.Text, q.ImageURL, q.Type,
			q.Options, q.Prompts, q.Matches, q.AnswerKey, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
