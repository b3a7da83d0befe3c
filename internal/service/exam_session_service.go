package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/repository"
	"github.com/classware/cbt-backend/internal/session"
	"github.com/classware/cbt-backend/internal/worker"
)

// Session domain errors.
var (
	ErrExamNotJoinable   = errors.New("exam is not available for joining")
	ErrInvalidEntryToken = errors.New("invalid entry token")
	ErrExamNotOpen       = errors.New("exam is outside its scheduled window")
	ErrNoActiveSession   = errors.New("no active session for this exam")
	ErrAlreadySubmitted  = errors.New("exam already submitted")
)

// ExamSessionService owns the live session registry and the submit
// pipeline. Finished sessions are scored in memory; this service queues the
// frozen payload to Redis, where the submission worker persists it. Essay
// answers additionally fan out to the review queue.
type ExamSessionService struct {
	manager        *session.Manager
	examService    *ExamService
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. The service is
// its own submission sink: session submits land on the Redis persist queue.
func NewExamSessionService(
	examService *ExamService,
	settingService *SettingService,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	reporter session.ProgressReporter,
	log zerolog.Logger,
) *ExamSessionService {
	s := &ExamSessionService{
		examService:    examService,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "exam_session_service").Logger(),
	}
	s.manager = session.NewManager(examService, settingService, s, reporter, log)
	return s
}

// Manager exposes the session registry for monitoring views.
func (s *ExamSessionService) Manager() *session.Manager {
	return s.manager
}

// SubmitSession queues one finished session for durable persistence. The
// push is the durability boundary: once queued, the submission worker owns
// retries. Essay answers are also queued for review; their enqueue is
// best-effort and never blocks the submit.
func (s *ExamSessionService) SubmitSession(ctx context.Context, sub *model.Submission) error {
	payload := worker.SubmissionPayload{
		SessionID:   sub.SessionID,
		StudentID:   sub.StudentID,
		ExamID:      sub.ExamID.String(),
		Answers:     sub.Answers,
		Score:       sub.Score,
		SubmittedAt: sub.SubmittedAt,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err(); err != nil {
		return fmt.Errorf("queue submission: %w", err)
	}

	s.enqueueEssayAnswers(ctx, sub)
	return nil
}

func (s *ExamSessionService) enqueueEssayAnswers(ctx context.Context, sub *model.Submission) {
	questions, err := s.examService.LoadQuestions(ctx, sub.ExamID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", sub.ExamID.String()).Msg("essay fan-out skipped, questions unavailable")
		return
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for _, a := range sub.Answers {
		q, ok := byID[a.QuestionID]
		if !ok || q.Type != model.QuestionTypeEssay || a.Value.Text == "" {
			continue
		}
		raw, _ := json.Marshal(worker.EssayPayload{
			ExamID:       sub.ExamID.String(),
			StudentID:    sub.StudentID,
			QuestionID:   q.ID.String(),
			QuestionText: q.Text,
			AnswerText:   a.Value.Text,
		})
		if err := s.rdb.RPush(ctx, config.WorkerKey.EssayReviewQueue, raw).Err(); err != nil {
			s.log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("essay enqueue failed")
		}
	}
}

// LobbyStatus represents the concrete state of an exam in the lobby.
type LobbyStatus string

const (
	LobbyStatusUpcoming   LobbyStatus = "UPCOMING"
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyExam represents an exam as displayed in the student lobby.
type LobbyExam struct {
	model.Exam
	LobbyStatus LobbyStatus `json:"lobby_status"`
	Score       *int        `json:"score,omitempty"`
}

// GetLobby returns the exams visible to a student, overlaid with their own
// live session or persisted submission.
func (s *ExamSessionService) GetLobby(ctx context.Context, studentID int) ([]LobbyExam, error) {
	exams, err := s.examService.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	var lobby []LobbyExam
	now := time.Now()

	for i := range exams {
		exam := exams[i]
		exam.EntryToken = ""
		entry := LobbyExam{Exam: exam}

		if sess, ok := s.manager.Get(studentID, exam.ID); ok {
			switch sess.State() {
			case session.StateActive, session.StateSubmitting:
				entry.LobbyStatus = LobbyStatusInProgress
				lobby = append(lobby, entry)
				continue
			case session.StateFinished:
				// Submitted but possibly not yet flushed by the worker; the
				// in-memory score is already final.
				score := sess.Score()
				entry.LobbyStatus = LobbyStatusCompleted
				entry.Score = &score
				lobby = append(lobby, entry)
				continue
			}
		}

		sub, err := s.submissionRepo.GetByExamAndStudent(ctx, exam.ID, studentID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check submission: %w", err)
		}
		if sub != nil {
			score := sub.Score
			entry.LobbyStatus = LobbyStatusCompleted
			entry.Score = &score
			lobby = append(lobby, entry)
			continue
		}

		if exams[i].ScheduledStart != nil && exams[i].ScheduledStart.After(now) {
			// Only surface upcoming exams scheduled for today.
			y1, m1, d1 := exams[i].ScheduledStart.Date()
			y2, m2, d2 := now.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
			entry.LobbyStatus = LobbyStatusUpcoming
		} else {
			entry.LobbyStatus = LobbyStatusAvailable
		}
		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// JoinExam validates the entry token and schedule window, then starts (or
// resumes) the student's in-memory session. A student who already submitted
// cannot rejoin.
func (s *ExamSessionService) JoinExam(ctx context.Context, examID uuid.UUID, studentID int, entryToken string) (*session.Session, error) {
	exam, err := s.examService.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if exam.Status != model.ExamStatusPublished && exam.Status != model.ExamStatusInProgress {
		return nil, ErrExamNotJoinable
	}
	if exam.EntryToken != "" && exam.EntryToken != entryToken {
		return nil, ErrInvalidEntryToken
	}

	now := time.Now()
	if exam.ScheduledStart != nil && now.Before(*exam.ScheduledStart) {
		return nil, ErrExamNotOpen
	}
	if exam.ScheduledEnd != nil && now.After(*exam.ScheduledEnd) {
		return nil, ErrExamNotOpen
	}

	// A live session resumes below; a finished one or a persisted
	// submission blocks rejoin.
	_, live := s.manager.Get(studentID, examID)
	if !live {
		sub, err := s.submissionRepo.GetByExamAndStudent(ctx, examID, studentID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check submission: %w", err)
		}
		if sub != nil {
			return nil, ErrAlreadySubmitted
		}
	}

	sess, err := s.manager.Start(ctx, studentID, exam)
	if err != nil {
		if errors.Is(err, session.ErrAlreadyFinished) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	// A fresh session after a process restart picks up autosaved answers.
	if !live && sess.State() == session.StateActive {
		s.restoreAutosave(ctx, sess)
	}

	if exam.Status == model.ExamStatusPublished {
		if err := s.examService.MarkInProgress(ctx, examID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("mark in-progress failed")
		}
	}

	return sess, nil
}

// AutosaveAnswers snapshots a live session's answers to Redis so a process
// restart mid-exam does not lose them. Best-effort: a Redis failure is
// logged and the session continues from memory.
func (s *ExamSessionService) AutosaveAnswers(ctx context.Context, sess *session.Session) {
	raw, err := json.Marshal(sess.Answers())
	if err != nil {
		return
	}
	key := config.CacheKey.StudentAnswersKey(sess.ExamID.String(), sess.StudentID)
	if err := s.rdb.Set(ctx, key, raw, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Int("student_id", sess.StudentID).Msg("answer autosave failed")
	}
}

// restoreAutosave seeds a freshly started session with the last autosaved
// answers, if any. The submission worker clears the key once a submission
// persists, so stale answers never outlive their attempt.
func (s *ExamSessionService) restoreAutosave(ctx context.Context, sess *session.Session) {
	key := config.CacheKey.StudentAnswersKey(sess.ExamID.String(), sess.StudentID)
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Int("student_id", sess.StudentID).Msg("autosave restore failed")
		}
		return
	}

	var answers []model.Answer
	if err := json.Unmarshal(raw, &answers); err != nil {
		return
	}
	for _, a := range answers {
		if err := sess.SelectAnswer(a.QuestionID, a.Value); err != nil {
			return
		}
	}
	if len(answers) > 0 {
		s.log.Info().
			Int("student_id", sess.StudentID).
			Int("answers", len(answers)).
			Msg("Session restored from autosave")
	}
}

// DropStudentSessions forgets a student's live sessions, part of the admin
// session reset. Unsubmitted answers survive only through the autosave
// cache; a fresh join starts over with full duration.
func (s *ExamSessionService) DropStudentSessions(studentID int) int {
	n := s.manager.DropAllFor(studentID)
	if n > 0 {
		s.log.Info().Int("student_id", studentID).Int("sessions", n).Msg("Dropped live sessions on reset")
	}
	return n
}

// GetSession returns the live session for (student, exam).
func (s *ExamSessionService) GetSession(studentID int, examID uuid.UUID) (*session.Session, error) {
	sess, ok := s.manager.Get(studentID, examID)
	if !ok {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

// SessionState is the reload snapshot for the student UI: the session view
// plus the raw captured answers.
type SessionState struct {
	View    session.View   `json:"view"`
	Answers []model.Answer `json:"answers"`
}

// GetExamState returns the live session snapshot for a page reload.
func (s *ExamSessionService) GetExamState(studentID int, examID uuid.UUID) (*SessionState, error) {
	sess, err := s.GetSession(studentID, examID)
	if err != nil {
		return nil, err
	}
	return &SessionState{
		View:    sess.View(),
		Answers: sess.Answers(),
	}, nil
}

// GetExamResults retrieves paginated persisted results for an exam.
func (s *ExamSessionService) GetExamResults(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.SubmissionRow, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.submissionRepo.ListByExam(ctx, examID, perPage, (page-1)*perPage)
}

// ExportResults retrieves every persisted result for an exam, for CSV
// export.
func (s *ExamSessionService) ExportResults(ctx context.Context, examID uuid.UUID) ([]repository.SubmissionRow, error) {
	return s.submissionRepo.ListAllByExam(ctx, examID)
}
