package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/model"
)

// Manager is the per-process registry of live sessions, keyed by
// (studentID, examID). Sessions share no mutable state with each other;
// the manager only guards the map itself.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	questions QuestionSource
	settings  SettingsSource
	sink      SubmissionSink
	reporter  ProgressReporter
	log       zerolog.Logger
}

type entry struct {
	sess   *Session
	clock  *Clock
	cancel context.CancelFunc
}

// NewManager wires the manager to its collaborators.
func NewManager(
	questions QuestionSource,
	settings SettingsSource,
	sink SubmissionSink,
	reporter ProgressReporter,
	log zerolog.Logger,
) *Manager {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Manager{
		entries:   make(map[string]*entry),
		questions: questions,
		settings:  settings,
		sink:      sink,
		reporter:  reporter,
		log:       log.With().Str("component", "session_manager").Logger(),
	}
}

func key(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

// Start loads the question snapshot and display settings once and brings a
// session to ACTIVE with a running clock. Starting again for the same
// (student, exam) while the prior session is still live resumes it — a page
// reload must not spawn a second timer. A session that already submitted
// stays registered and rejects a restart: one attempt per (student, exam).
// A load failure is terminal: no session is registered and the caller
// decides about retries.
func (m *Manager) Start(ctx context.Context, studentID int, exam *model.Exam) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(studentID, exam.ID)
	if e, ok := m.entries[k]; ok {
		switch e.sess.State() {
		case StateActive, StateSubmitting:
			return e.sess, nil
		default:
			return nil, ErrAlreadyFinished
		}
	}

	questions, err := m.questions.LoadQuestions(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	settings, err := m.settings.LoadExamSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exam settings: %w", err)
	}

	sess := New(studentID, exam.ID, questions, settings, exam.DurationMinutes, m.sink, m.reporter, m.log)
	if sess.State() == StateEmpty {
		// Terminal display state; nothing to tick, nothing to register.
		return sess, nil
	}

	clockCtx, cancel := context.WithCancel(context.Background())
	clock := NewClock(sess, m.log)
	go clock.Start(clockCtx)

	m.entries[k] = &entry{sess: sess, clock: clock, cancel: cancel}
	m.log.Info().
		Int("student_id", studentID).
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Session started")
	return sess, nil
}

// Get returns the live session for (student, exam), if any.
func (m *Manager) Get(studentID int, examID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key(studentID, examID)]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// DropAllFor stops the clocks and forgets every session belonging to a
// student, reporting how many were dropped. In-memory state is simply lost;
// only an already-persisted submission survives. This is the admin
// session-reset path.
func (m *Manager) DropAllFor(studentID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.sess.StudentID != studentID {
			continue
		}
		e.cancel()
		e.clock.Stop()
		delete(m.entries, k)
		n++
	}
	return n
}

// Live returns progress snapshots of every registered session for an exam,
// for monitoring views.
func (m *Manager) Live(examID uuid.UUID) []Progress {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Progress
	for _, e := range m.entries {
		if e.sess.ExamID != examID {
			continue
		}
		e.sess.mu.Lock()
		out = append(out, e.sess.progressLocked())
		e.sess.mu.Unlock()
	}
	return out
}
