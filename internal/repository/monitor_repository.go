package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository provides data access for live exam monitoring. Live
// session progress comes from the in-memory manager; this repository covers
// the durable side — which students have a persisted submission and what
// they scored.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// SubmittedScore is one persisted submission seen by the monitor.
type SubmittedScore struct {
	StudentID   int    `json:"student_id"`
	StudentName string `json:"student_name"`
	Score       int    `json:"score"`
}

// GetSubmittedScores returns the persisted score for every student who has
// submitted the given exam.
func (r *MonitorRepository) GetSubmittedScores(ctx context.Context, examID uuid.UUID) (map[int]SubmittedScore, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sub.student_id, st.name, sub.score
		 FROM submissions sub
		 JOIN students st ON st.id = sub.student_id
		 WHERE sub.exam_id = $1`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int]SubmittedScore)
	for rows.Next() {
		var s SubmittedScore
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.Score); err != nil {
			return nil, err
		}
		result[s.StudentID] = s
	}
	return result, rows.Err()
}

// GetStudentNames resolves display names for a set of student IDs.
func (r *MonitorRepository) GetStudentNames(ctx context.Context, ids []int) (map[int]string, error) {
	if len(ids) == 0 {
		return map[int]string{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM students WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int]string, len(ids))
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
