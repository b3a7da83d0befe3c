package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/model"
)

// memSink records submissions and can be told to fail.
type memSink struct {
	mu    sync.Mutex
	subs  []*model.Submission
	fail  error
	calls int
}

func (s *memSink) SubmitSession(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	cp := *sub
	cp.Answers = append([]model.Answer(nil), sub.Answers...)
	s.subs = append(s.subs, &cp)
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *memSink) last(t *testing.T) *model.Submission {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		t.Fatal("no submission recorded")
	}
	return s.subs[len(s.subs)-1]
}

func twoChoiceExam() []model.Question {
	opts := []model.Option{{ID: "opt1"}, {ID: "opt2"}}
	return []model.Question{
		{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Options: opts,
			AnswerKey: model.AnswerValue{OptionID: "opt1"}, OrderNum: 0},
		{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Options: opts,
			AnswerKey: model.AnswerValue{OptionID: "opt1"}, OrderNum: 1},
		{ID: uuid.New(), Type: model.QuestionTypeEssay, OrderNum: 2},
	}
}

func newTestSession(t *testing.T, questions []model.Question, sink SubmissionSink) *Session {
	t.Helper()
	if sink == nil {
		sink = &memSink{}
	}
	return New(7, uuid.New(), questions, model.ExamSettings{
		QuestionDisplayMode: model.DisplaySinglePerPage,
	}, 1, sink, nil, zerolog.Nop())
}

func TestSession_EmptySnapshotIsTerminal(t *testing.T) {
	sink := &memSink{}
	s := newTestSession(t, nil, sink)

	if s.State() != StateEmpty {
		t.Fatalf("expected EMPTY, got %s", s.State())
	}
	if err := s.SelectAnswer(uuid.New(), model.AnswerValue{OptionID: "opt1"}); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm on empty session: %v", err)
	}
	if sink.count() != 0 {
		t.Fatal("empty session must never submit")
	}
}

func TestSession_NavigationClamps(t *testing.T) {
	s := newTestSession(t, twoChoiceExam(), nil)

	if got := s.Navigate(Prev); got != 0 {
		t.Fatalf("prev at index 0 must be a no-op, got %d", got)
	}
	if got := s.Navigate(Next); got != 1 {
		t.Fatalf("expected cursor 1, got %d", got)
	}
	s.Navigate(Next)
	if got := s.Navigate(Next); got != 2 {
		t.Fatalf("next at last index must be a no-op, got %d", got)
	}
}

func TestSession_JumpToBounds(t *testing.T) {
	s := newTestSession(t, twoChoiceExam(), nil)

	if got := s.JumpTo(2); got != 2 {
		t.Fatalf("expected cursor 2, got %d", got)
	}
	if got := s.JumpTo(-1); got != 2 {
		t.Fatalf("negative jump must be a no-op, got %d", got)
	}
	if got := s.JumpTo(3); got != 2 {
		t.Fatalf("out-of-range jump must be a no-op, got %d", got)
	}
}

func TestSession_ToggleReviewIsItsOwnInverse(t *testing.T) {
	qs := twoChoiceExam()
	s := newTestSession(t, qs, nil)

	if !s.ToggleReview(qs[0].ID) {
		t.Fatal("first toggle should flag")
	}
	if s.ToggleReview(qs[0].ID) {
		t.Fatal("second toggle should unflag")
	}
	if got := s.RequestSubmit().Flagged; got != 0 {
		t.Fatalf("expected no flags, got %d", got)
	}
}

func TestSession_RequestSubmitCounts(t *testing.T) {
	qs := twoChoiceExam()
	s := newTestSession(t, qs, nil)

	sum := s.RequestSubmit()
	if sum.Unanswered != 3 || sum.Flagged != 0 {
		t.Fatalf("expected 3 unanswered / 0 flagged, got %+v", sum)
	}

	// "0" is a real option id, not an empty value.
	if err := s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "0"}); err != nil {
		t.Fatal(err)
	}
	// An empty essay text does not count as answered.
	if err := s.SelectAnswer(qs[2].ID, model.AnswerValue{Text: "   "}); err != nil {
		t.Fatal(err)
	}
	s.ToggleReview(qs[1].ID)

	sum = s.RequestSubmit()
	if sum.Unanswered != 2 {
		t.Fatalf("expected 2 unanswered, got %d", sum.Unanswered)
	}
	if sum.Flagged != 1 {
		t.Fatalf("expected 1 flagged, got %d", sum.Flagged)
	}
}

func TestSession_SelectAnswerLastWriteWins(t *testing.T) {
	qs := twoChoiceExam()
	sink := &memSink{}
	s := newTestSession(t, qs, sink)

	s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "opt2"})
	s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "opt1"})
	s.SelectAnswer(qs[1].ID, model.AnswerValue{OptionID: "opt1"})

	if err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatal(err)
	}
	sub := sink.last(t)
	if sub.Score != 100 {
		t.Fatalf("expected 100 after overwrite, got %d", sub.Score)
	}
	if len(sub.Answers) != 2 {
		t.Fatalf("expected 2 materialized answers, got %d", len(sub.Answers))
	}
	// Ordered by question snapshot order.
	if sub.Answers[0].QuestionID != qs[0].ID || sub.Answers[1].QuestionID != qs[1].ID {
		t.Fatal("answers not in question order")
	}
}

func TestSession_ConfirmSubmitIsIdempotent(t *testing.T) {
	qs := twoChoiceExam()
	sink := &memSink{}
	s := newTestSession(t, qs, sink)

	if err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateFinished {
		t.Fatalf("expected FINISHED, got %s", s.State())
	}
	if err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("second confirm must be a no-op, got %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly one sink call, got %d", sink.count())
	}
	if err := s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "opt1"}); !errors.Is(err, ErrNotActive) {
		t.Fatalf("mutation after submit must fail, got %v", err)
	}
	// A confirmed submit must never report as forced, reconnects included.
	if s.Forced() {
		t.Fatal("confirmed submit reported as forced")
	}
}

func TestSession_TimeoutForcesExactlyOneSubmit(t *testing.T) {
	qs := twoChoiceExam()
	sink := &memSink{}
	s := newTestSession(t, qs, sink) // duration = 1 minute
	ctx := context.Background()

	for i := 0; i < 59; i++ {
		if _, state := s.Tick(ctx); state != StateActive {
			t.Fatalf("finished early at tick %d", i+1)
		}
	}

	remaining, state := s.Tick(ctx) // tick 60
	if remaining != 0 || state != StateFinished {
		t.Fatalf("expected 0/FINISHED at tick 60, got %d/%s", remaining, state)
	}

	// A confirm racing the forced submit in the same tick must not double
	// submit, and further ticks must not decrement or resubmit.
	if err := s.ConfirmSubmit(ctx); err != nil {
		t.Fatal(err)
	}
	s.Tick(ctx)
	if sink.count() != 1 {
		t.Fatalf("expected exactly one submission, got %d", sink.count())
	}
	if !s.Forced() {
		t.Fatal("clock-driven submit must report as forced, even after the losing confirm")
	}

	sub := sink.last(t)
	if len(sub.Answers) != 0 {
		t.Fatalf("untouched session should submit no answers, got %d", len(sub.Answers))
	}
	if sub.Score != 0 {
		t.Fatalf("expected score 0 with no answers, got %d", sub.Score)
	}
}

func TestSession_SinkFailureStillFinishes(t *testing.T) {
	qs := twoChoiceExam()
	sink := &memSink{fail: errors.New("backend down")}
	s := newTestSession(t, qs, sink)
	ctx := context.Background()

	s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "opt1"})

	if err := s.ConfirmSubmit(ctx); err == nil {
		t.Fatal("expected sink error")
	}
	if s.State() != StateFinished {
		t.Fatalf("session must not stay active after a submit attempt, got %s", s.State())
	}
	if s.SubmitError() == nil {
		t.Fatal("sink error must be retained")
	}

	scoreBefore := s.Score()
	answersBefore := s.Answers()

	// Retry with the backend recovered: same frozen payload, same score.
	sink.mu.Lock()
	sink.fail = nil
	sink.mu.Unlock()

	if err := s.RetrySubmit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.SubmitError() != nil {
		t.Fatal("sink error should clear after successful retry")
	}

	sub := sink.last(t)
	if sub.Score != scoreBefore {
		t.Fatalf("score recomputed on retry: %d vs %d", sub.Score, scoreBefore)
	}
	if len(sub.Answers) != len(answersBefore) {
		t.Fatal("answer set changed on retry")
	}

	if err := s.RetrySubmit(ctx); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("expected ErrNothingToRetry, got %v", err)
	}
}

func TestSession_RetryBeforeSubmitIsRejected(t *testing.T) {
	s := newTestSession(t, twoChoiceExam(), nil)
	if err := s.RetrySubmit(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("expected ErrNothingToRetry, got %v", err)
	}
}

func TestSession_ViewReflectsState(t *testing.T) {
	qs := twoChoiceExam()
	s := newTestSession(t, qs, nil)

	s.SelectAnswer(qs[0].ID, model.AnswerValue{OptionID: "opt2"})
	s.ToggleReview(qs[1].ID)
	s.Navigate(Next)

	v := s.View()
	if v.State != StateActive || v.Cursor != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Current == nil || v.Current.ID != qs[1].ID {
		t.Fatal("current question mismatch")
	}
	if !v.Questions[0].Answered || v.Questions[1].Answered {
		t.Fatal("answered overlay mismatch")
	}
	if !v.Questions[1].Flagged {
		t.Fatal("flagged overlay mismatch")
	}
	if v.Score != nil {
		t.Fatal("score must be hidden before submit")
	}
	if v.DisplayMode != model.DisplaySinglePerPage {
		t.Fatalf("display mode lost: %s", v.DisplayMode)
	}

	s.ConfirmSubmit(context.Background())
	v = s.View()
	if v.Score == nil {
		t.Fatal("score must be exposed once finished")
	}
}
