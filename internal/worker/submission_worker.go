package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/model"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
)

// SubmissionWorker consumes persist_submissions_queue and upserts finished
// session payloads into PostgreSQL. The upsert is keyed (exam_id,
// student_id), so retried deliveries stay idempotent.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

// SubmissionPayload is the queue message for one finished session.
type SubmissionPayload struct {
	SessionID   uuid.UUID      `json:"session_id"`
	StudentID   int            `json:"student_id"`
	ExamID      string         `json:"exam_id"`
	Answers     []model.Answer `json:"answers"`
	Score       int            `json:"score"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	batch := make([]*SubmissionPayload, 0, SubmissionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SubmissionBatchSize || time.Since(lastFlush) >= SubmissionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SubmissionPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p SubmissionPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*SubmissionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk submission upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
		return
	}

	// After durable persistence → drop any leftover live-state buffers.
	w.bulkClearSessionState(ctx, batch)
}

func (w *SubmissionWorker) bulkUpsert(ctx context.Context, batch []*SubmissionPayload) error {
	n := len(batch)

	sessionIDs := make([]uuid.UUID, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	answersBytes := make([][]byte, 0, n)
	scores := make([]int, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		ab, _ := json.Marshal(p.Answers)

		sessionIDs = append(sessionIDs, p.SessionID)
		examIDs = append(examIDs, eID)
		students = append(students, p.StudentID)
		answersBytes = append(answersBytes, ab)
		scores = append(scores, p.Score)
		submittedAts = append(submittedAts, p.SubmittedAt)
	}

	query := `
		INSERT INTO submissions (session_id, exam_id, student_id, answers, score, submitted_at)
		SELECT
			u.session_id,
			u.exam_id,
			u.student_id,
			u.answers,
			u.score,
			u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::int[],
			$4::jsonb[],
			$5::int[],
			$6::timestamptz[]
		) AS u (session_id, exam_id, student_id, answers, score, submitted_at)
		ON CONFLICT (exam_id, student_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    answers = EXCLUDED.answers,
		    score = EXCLUDED.score,
		    submitted_at = EXCLUDED.submitted_at
	`

	_, err := w.pool.Exec(ctx, query, sessionIDs, examIDs, students, answersBytes, scores, submittedAts)
	return err
}

func (w *SubmissionWorker) bulkClearSessionState(ctx context.Context, batch []*SubmissionPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.StudentAnswersKey(p.ExamID, p.StudentID))
	}

	_, _ = pipe.Exec(ctx)
}

func (w *SubmissionWorker) persistSingle(ctx context.Context, p *SubmissionPayload) error {
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}

	ab, _ := json.Marshal(p.Answers)

	_, err = w.pool.Exec(ctx,
		`INSERT INTO submissions (session_id, exam_id, student_id, answers, score, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET session_id = EXCLUDED.session_id,
		     answers = EXCLUDED.answers,
		     score = EXCLUDED.score,
		     submitted_at = EXCLUDED.submitted_at`,
		p.SessionID, eID, p.StudentID, ab, p.Score, p.SubmittedAt,
	)

	return err
}
