package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/model"
)

type memQuestionSource struct {
	questions []model.Question
	err       error
	loads     int
}

func (s *memQuestionSource) LoadQuestions(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.questions, nil
}

type memSettingsSource struct {
	settings model.ExamSettings
	err      error
}

func (s *memSettingsSource) LoadExamSettings(_ context.Context) (model.ExamSettings, error) {
	return s.settings, s.err
}

func newTestManager(qs *memQuestionSource, sink SubmissionSink) *Manager {
	if sink == nil {
		sink = &memSink{}
	}
	return NewManager(qs, &memSettingsSource{
		settings: model.ExamSettings{QuestionDisplayMode: model.DisplayAllInOne},
	}, sink, nil, zerolog.Nop())
}

func testExam() *model.Exam {
	return &model.Exam{ID: uuid.New(), Title: "Math Final", DurationMinutes: 30}
}

func TestManager_StartAndResume(t *testing.T) {
	src := &memQuestionSource{questions: twoChoiceExam()}
	m := newTestManager(src, nil)
	exam := testExam()
	ctx := context.Background()

	s1, err := m.Start(ctx, 7, exam)
	if err != nil {
		t.Fatal(err)
	}
	if s1.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", s1.State())
	}

	// A reload resumes the same session without re-snapshotting.
	s2, err := m.Start(ctx, 7, exam)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("expected the same session on resume")
	}
	if src.loads != 1 {
		t.Fatalf("resume must not reload questions, loads=%d", src.loads)
	}

	// Another student gets an independent session.
	s3, err := m.Start(ctx, 8, exam)
	if err != nil {
		t.Fatal(err)
	}
	if s3 == s1 {
		t.Fatal("sessions must be independent per student")
	}

	got, ok := m.Get(7, exam.ID)
	if !ok || got != s1 {
		t.Fatal("Get should return the registered session")
	}
}

func TestManager_LoadFailureIsTerminal(t *testing.T) {
	src := &memQuestionSource{err: errors.New("storage unavailable")}
	m := newTestManager(src, nil)

	if _, err := m.Start(context.Background(), 7, testExam()); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := m.Get(7, uuid.Nil); ok {
		t.Fatal("failed start must not register a session")
	}
}

func TestManager_EmptyExamIsNotRegistered(t *testing.T) {
	src := &memQuestionSource{}
	m := newTestManager(src, nil)
	exam := testExam()

	s, err := m.Start(context.Background(), 7, exam)
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != StateEmpty {
		t.Fatalf("expected EMPTY, got %s", s.State())
	}
	if _, ok := m.Get(7, exam.ID); ok {
		t.Fatal("empty sessions carry no clock and are not registered")
	}
}

func TestManager_StartAfterSubmitIsRejected(t *testing.T) {
	src := &memQuestionSource{questions: twoChoiceExam()}
	sink := &memSink{}
	m := newTestManager(src, sink)
	exam := testExam()
	ctx := context.Background()

	s1, err := m.Start(ctx, 7, exam)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.ConfirmSubmit(ctx); err != nil {
		t.Fatal(err)
	}

	// One attempt per (student, exam): a rejoin after submit must not get a
	// fresh full-time session that could overwrite the recorded score.
	s2, err := m.Start(ctx, 7, exam)
	if !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if s2 != nil {
		t.Fatal("rejected start must not return a session")
	}
	if sink.count() != 1 {
		t.Fatalf("submit count changed, got %d", sink.count())
	}

	// The finished session stays visible for state views.
	got, ok := m.Get(7, exam.ID)
	if !ok || got != s1 {
		t.Fatal("finished session should stay registered")
	}

	// Other students are unaffected.
	if _, err := m.Start(ctx, 8, exam); err != nil {
		t.Fatal(err)
	}
}

func TestManager_DropAllFor(t *testing.T) {
	src := &memQuestionSource{questions: twoChoiceExam()}
	m := newTestManager(src, nil)
	examA := testExam()
	examB := testExam()
	ctx := context.Background()

	m.Start(ctx, 7, examA)
	m.Start(ctx, 7, examB)
	m.Start(ctx, 8, examA)

	if n := m.DropAllFor(7); n != 2 {
		t.Fatalf("expected 2 dropped sessions, got %d", n)
	}
	if _, ok := m.Get(7, examA.ID); ok {
		t.Fatal("dropped session still registered")
	}
	if _, ok := m.Get(8, examA.ID); !ok {
		t.Fatal("other students' sessions must survive")
	}

	// With the registry entry gone the student can start over.
	s, err := m.Start(ctx, 7, examA)
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != StateActive {
		t.Fatalf("expected fresh ACTIVE session, got %s", s.State())
	}
}

func TestManager_LiveFiltersPerExam(t *testing.T) {
	src := &memQuestionSource{questions: twoChoiceExam()}
	m := newTestManager(src, nil)
	examA := testExam()
	examB := testExam()
	ctx := context.Background()

	m.Start(ctx, 1, examA)
	m.Start(ctx, 2, examA)
	m.Start(ctx, 3, examB)

	live := m.Live(examA.ID)
	if len(live) != 2 {
		t.Fatalf("expected 2 live sessions for exam A, got %d", len(live))
	}
	for _, p := range live {
		if p.ExamID != examA.ID {
			t.Fatal("progress from the wrong exam leaked")
		}
		if p.State != StateActive {
			t.Fatalf("expected ACTIVE progress, got %s", p.State)
		}
	}
}
