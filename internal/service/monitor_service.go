package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/repository"
	"github.com/classware/cbt-backend/internal/session"
)

// MonitorService builds live monitoring snapshots for admins. Live progress
// comes from the in-process session registry; persisted scores come from
// PostgreSQL so students who already submitted stay visible.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
	manager     *session.Manager
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository, manager *session.Manager, rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		monitorRepo: monitorRepo,
		manager:     manager,
		rdb:         rdb,
		log:         log.With().Str("component", "monitor_service").Logger(),
	}
}

// MonitorEntry is one student's row in the monitoring view.
type MonitorEntry struct {
	StudentID   int           `json:"student_id"`
	StudentName string        `json:"student_name"`
	State       session.State `json:"state"`
	Answered    int           `json:"answered"`
	Flagged     int           `json:"flagged"`
	Remaining   int           `json:"remaining_seconds"`
	Score       *int          `json:"score,omitempty"`
}

// MonitorSnapshot is the full per-exam monitoring view.
type MonitorSnapshot struct {
	ExamID    uuid.UUID      `json:"exam_id"`
	Students  []MonitorEntry `json:"students"`
	Active    int            `json:"active"`
	Submitted int            `json:"submitted"`
}

// GetSnapshot merges live session progress with persisted submissions. The
// two fetches run concurrently; live progress wins for students appearing
// in both (a just-submitted session whose row already landed).
func (s *MonitorService) GetSnapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	live := s.manager.Live(examID)

	var (
		submitted    map[int]repository.SubmittedScore
		submittedErr error
		names        map[int]string
		namesErr     error
		wg           sync.WaitGroup
	)

	ids := make([]int, 0, len(live))
	for _, p := range live {
		ids = append(ids, p.StudentID)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		submitted, submittedErr = s.monitorRepo.GetSubmittedScores(ctx, examID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		names, namesErr = s.monitorRepo.GetStudentNames(ctx, ids)
	}()

	wg.Wait()

	if submittedErr != nil {
		return nil, submittedErr
	}
	// Names are display sugar; a failed lookup leaves them blank.
	if namesErr != nil {
		s.log.Warn().Err(namesErr).Msg("student name lookup failed")
		names = map[int]string{}
	}

	snapshot := &MonitorSnapshot{ExamID: examID}
	seen := make(map[int]struct{}, len(live))

	for _, p := range live {
		seen[p.StudentID] = struct{}{}
		entry := MonitorEntry{
			StudentID:   p.StudentID,
			StudentName: names[p.StudentID],
			State:       p.State,
			Answered:    p.Answered,
			Flagged:     p.Flagged,
			Remaining:   p.Remaining,
		}
		if p.State == session.StateFinished {
			snapshot.Submitted++
		} else {
			snapshot.Active++
		}
		snapshot.Students = append(snapshot.Students, entry)
	}

	for id, sub := range submitted {
		if _, ok := seen[id]; ok {
			continue
		}
		score := sub.Score
		snapshot.Students = append(snapshot.Students, MonitorEntry{
			StudentID:   id,
			StudentName: sub.StudentName,
			State:       session.StateFinished,
			Score:       &score,
		})
		snapshot.Submitted++
	}

	sort.Slice(snapshot.Students, func(i, j int) bool {
		return snapshot.Students[i].StudentID < snapshot.Students[j].StudentID
	})

	return snapshot, nil
}

// Subscribe opens the Redis PubSub channel carrying an exam's progress
// events. Callers own the returned subscription and must Close it.
func (s *MonitorService) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// ProgressPublisher fans live session progress out to the per-exam Redis
// channel. It implements session.ProgressReporter; publish failures are
// logged and dropped so a Redis hiccup never stalls a session.
type ProgressPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewProgressPublisher creates a ProgressPublisher.
func NewProgressPublisher(rdb *redis.Client, log zerolog.Logger) *ProgressPublisher {
	return &ProgressPublisher{
		rdb: rdb,
		log: log.With().Str("component", "progress_publisher").Logger(),
	}
}

// ReportProgress publishes one progress event.
func (p *ProgressPublisher) ReportProgress(ctx context.Context, prog session.Progress) {
	raw, err := json.Marshal(prog)
	if err != nil {
		return
	}
	channel := config.CacheKey.ExamMonitorChannel(prog.ExamID.String())
	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		p.log.Debug().Err(err).Msg("progress publish failed")
	}
}
