// Package session holds the in-memory state machine for one student's
// timed exam attempt: question navigation, answer capture, review flags,
// the countdown, and the submit path.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/grading"
	"github.com/classware/cbt-backend/internal/model"
)

// State is the session lifecycle state.
type State string

const (
	StateLoading    State = "LOADING"
	StateEmpty      State = "EMPTY"
	StateActive     State = "ACTIVE"
	StateSubmitting State = "SUBMITTING"
	StateFinished   State = "FINISHED"
)

// Direction moves the cursor one step.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

var (
	// ErrNotActive is returned by mutating operations once the session has
	// left the ACTIVE state (or never reached it).
	ErrNotActive = errors.New("session is not active")
	// ErrNothingToRetry is returned by RetrySubmit when there is no failed
	// submission to re-send.
	ErrNothingToRetry = errors.New("no failed submission to retry")
	// ErrAlreadyFinished is returned by Manager.Start when the student's
	// registered session for the exam already submitted.
	ErrAlreadyFinished = errors.New("session already finished")
)

// Summary is the confirmation-prompt payload surfaced before submit.
type Summary struct {
	Unanswered int `json:"unanswered"`
	Flagged    int `json:"flagged"`
}

// QuestionStatus is the per-question overlay for navigation UIs.
type QuestionStatus struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answered   bool      `json:"answered"`
	Flagged    bool      `json:"flagged"`
}

// View is a read-only snapshot of session state for host UI layers.
type View struct {
	State       State                     `json:"state"`
	Cursor      int                       `json:"cursor"`
	Current     *model.QuestionForStudent `json:"current_question,omitempty"`
	Remaining   int                       `json:"remaining_seconds"`
	DisplayMode model.QuestionDisplayMode `json:"question_display_mode"`
	Questions   []QuestionStatus          `json:"questions"`
	Score       *int                      `json:"score,omitempty"`
}

// Session is one student's single attempt at one exam, from load to submit.
// All mutations are serialized through the internal mutex; the clock tick
// is the only timer-driven caller. Sessions are never persisted mid-flight:
// only the final submission is durable.
type Session struct {
	ID        uuid.UUID
	StudentID int
	ExamID    uuid.UUID

	mu        sync.Mutex
	questions []model.Question
	settings  model.ExamSettings
	cursor    int
	answers   map[uuid.UUID]model.AnswerValue
	flagged   map[uuid.UUID]struct{}
	remaining int
	state     State

	// Set by the submit path and immutable afterwards.
	frozen      []model.Answer
	score       int
	submittedAt time.Time
	forced      bool
	sinkErr     error

	sink     SubmissionSink
	reporter ProgressReporter
	log      zerolog.Logger
}

// New builds a session over a question snapshot. The snapshot and settings
// are owned by the session from here on; later question-bank edits never
// reach it. An empty snapshot yields the terminal EMPTY state.
func New(
	studentID int,
	examID uuid.UUID,
	questions []model.Question,
	settings model.ExamSettings,
	durationMinutes int,
	sink SubmissionSink,
	reporter ProgressReporter,
	log zerolog.Logger,
) *Session {
	if reporter == nil {
		reporter = NopReporter{}
	}
	s := &Session{
		ID:        uuid.New(),
		StudentID: studentID,
		ExamID:    examID,
		questions: questions,
		settings:  settings,
		answers:   make(map[uuid.UUID]model.AnswerValue),
		flagged:   make(map[uuid.UUID]struct{}),
		remaining: durationMinutes * 60,
		state:     StateLoading,
		sink:      sink,
		reporter:  reporter,
		log: log.With().
			Int("student_id", studentID).
			Str("exam_id", examID.String()).
			Logger(),
	}
	if len(questions) == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateActive
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the countdown value in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// SelectAnswer upserts the answer for a question. Value shape is not
// validated here; a mismatched shape simply grades as incorrect later.
func (s *Session) SelectAnswer(questionID uuid.UUID, value model.AnswerValue) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.answers[questionID] = value
	p := s.progressLocked()
	s.mu.Unlock()

	s.reporter.ReportProgress(context.Background(), p)
	return nil
}

// Navigate moves the cursor one step, clamped to the question range.
// Returns the resulting cursor.
func (s *Session) Navigate(d Direction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return s.cursor
	}
	next := s.cursor + int(d)
	if next >= 0 && next < len(s.questions) {
		s.cursor = next
	}
	return s.cursor
}

// JumpTo sets the cursor directly; out-of-range indexes are a no-op.
// Returns the resulting cursor.
func (s *Session) JumpTo(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return s.cursor
	}
	if index >= 0 && index < len(s.questions) {
		s.cursor = index
	}
	return s.cursor
}

// ToggleReview flips the review flag for a question and reports whether it
// is now flagged. Flags have no scoring effect.
func (s *Session) ToggleReview(questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		_, ok := s.flagged[questionID]
		return ok
	}
	if _, ok := s.flagged[questionID]; ok {
		delete(s.flagged, questionID)
		return false
	}
	s.flagged[questionID] = struct{}{}
	return true
}

// RequestSubmit computes the confirmation-prompt counts: questions with no
// non-empty answer, and questions still flagged for review. It does not
// change state; the host proceeds with ConfirmSubmit.
func (s *Session) RequestSubmit() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Unanswered: len(s.questions) - s.answeredLocked(),
		Flagged:    len(s.flagged),
	}
}

// ConfirmSubmit runs the submit path after explicit confirmation. Calling
// it after the session already left ACTIVE is a no-op returning nil, so a
// confirm racing the clock's forced submit cannot submit twice.
func (s *Session) ConfirmSubmit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	return s.submitLocked(ctx, false)
}

// Tick decrements the countdown by one second while ACTIVE. On reaching
// zero it runs the forced submit path, bypassing confirmation. Returns the
// remaining seconds and the (possibly new) state so the clock can stop the
// instant the session leaves ACTIVE.
func (s *Session) Tick(ctx context.Context) (int, State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return s.remaining, s.state
	}
	s.remaining--
	if s.remaining > 0 {
		return s.remaining, s.state
	}
	s.remaining = 0
	s.log.Info().Msg("Time expired, forcing submit")
	_ = s.submitLocked(ctx, true)
	return s.remaining, s.state
}

// RetrySubmit re-sends the frozen (answers, score) payload after a sink
// failure. The score is never recomputed.
func (s *Session) RetrySubmit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished || s.sinkErr == nil {
		return ErrNothingToRetry
	}
	s.sinkErr = s.sink.SubmitSession(ctx, s.submissionLocked())
	return s.sinkErr
}

// Forced reports whether the submit came from the clock rather than an
// explicit confirmation. False until the session submits.
func (s *Session) Forced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forced
}

// SubmitError returns the sink error from the last submit attempt, nil if
// the submission persisted.
func (s *Session) SubmitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinkErr
}

// Score returns the computed score; valid once FINISHED.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Answers returns the frozen ordered answer list after submit, or a
// point-in-time materialization while the session is live.
func (s *Session) Answers() []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen != nil {
		return append([]model.Answer(nil), s.frozen...)
	}
	return s.materializeLocked()
}

// View builds a read-only snapshot for host UI layers.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:       s.state,
		Cursor:      s.cursor,
		Remaining:   s.remaining,
		DisplayMode: s.settings.QuestionDisplayMode,
		Questions:   make([]QuestionStatus, 0, len(s.questions)),
	}
	for _, q := range s.questions {
		ans, ok := s.answers[q.ID]
		_, flagged := s.flagged[q.ID]
		v.Questions = append(v.Questions, QuestionStatus{
			QuestionID: q.ID,
			Answered:   ok && !ans.IsEmpty(q.Type),
			Flagged:    flagged,
		})
	}
	if s.cursor < len(s.questions) {
		q := s.questions[s.cursor].ForStudent()
		v.Current = &q
	}
	if s.state == StateFinished {
		score := s.score
		v.Score = &score
	}
	return v
}

// submitLocked is the single submit path, entered with the lock held and
// state ACTIVE. It freezes the answers, scores them once, hands the pair to
// the sink, and reaches FINISHED regardless of sink outcome so no second
// timer or submit can fire. A sink failure is kept for RetrySubmit.
func (s *Session) submitLocked(ctx context.Context, forced bool) error {
	s.state = StateSubmitting
	s.forced = forced
	s.frozen = s.materializeLocked()
	s.score = grading.Score(s.questions, s.frozen)
	s.submittedAt = time.Now()

	s.sinkErr = s.sink.SubmitSession(ctx, s.submissionLocked())
	s.state = StateFinished

	evt := s.log.Info()
	if s.sinkErr != nil {
		evt = s.log.Error().Err(s.sinkErr)
	}
	evt.Int("score", s.score).Bool("forced", forced).Msg("Session submitted")

	s.reporter.ReportProgress(ctx, s.progressLocked())
	return s.sinkErr
}

// materializeLocked turns the answer map into an ordered list following the
// question snapshot order.
func (s *Session) materializeLocked() []model.Answer {
	out := make([]model.Answer, 0, len(s.answers))
	for _, q := range s.questions {
		if v, ok := s.answers[q.ID]; ok {
			out = append(out, model.Answer{QuestionID: q.ID, Value: v})
		}
	}
	return out
}

func (s *Session) submissionLocked() *model.Submission {
	return &model.Submission{
		SessionID:   s.ID,
		StudentID:   s.StudentID,
		ExamID:      s.ExamID,
		Answers:     s.frozen,
		Score:       s.score,
		SubmittedAt: s.submittedAt,
	}
}

// answeredLocked counts questions whose captured value is non-empty for
// their type. An unset or blank value does not count; a "0"-like selection
// does.
func (s *Session) answeredLocked() int {
	n := 0
	for _, q := range s.questions {
		if v, ok := s.answers[q.ID]; ok && !v.IsEmpty(q.Type) {
			n++
		}
	}
	return n
}

func (s *Session) progressLocked() Progress {
	return Progress{
		StudentID: s.StudentID,
		ExamID:    s.ExamID,
		Answered:  s.answeredLocked(),
		Flagged:   len(s.flagged),
		Remaining: s.remaining,
		State:     s.state,
	}
}
