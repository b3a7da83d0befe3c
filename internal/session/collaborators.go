package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/classware/cbt-backend/internal/model"
)

// QuestionSource loads the immutable question snapshot used for an entire
// session. A failure here is terminal for the session; the host decides
// whether to retry loading.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// SettingsSource loads the read-only display settings handed to a session
// at start. Settings never affect scoring.
type SettingsSource interface {
	LoadExamSettings(ctx context.Context) (model.ExamSettings, error)
}

// SubmissionSink persists the finalized submission. Implementations must be
// idempotent per (studentID, examID): a resubmission overwrites the prior
// record. Failures are retryable by the caller with the same frozen payload.
type SubmissionSink interface {
	SubmitSession(ctx context.Context, sub *model.Submission) error
}

// Progress is a monitoring snapshot of one live session.
type Progress struct {
	StudentID int       `json:"student_id"`
	ExamID    uuid.UUID `json:"exam_id"`
	Answered  int       `json:"answered"`
	Flagged   int       `json:"flagged"`
	Remaining int       `json:"remaining_seconds"`
	State     State     `json:"state"`
}

// ProgressReporter receives best-effort monitoring updates. Implementations
// must not block the session; errors are the reporter's problem.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, p Progress)
}

// NopReporter discards progress updates.
type NopReporter struct{}

func (NopReporter) ReportProgress(context.Context, Progress) {}
