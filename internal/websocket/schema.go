package websocket

import (
	"github.com/classware/cbt-backend/internal/model"
	"github.com/classware/cbt-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionAnswer upserts the answer value for a question.
	ActionAnswer Action = "answer"
	// ActionFlag toggles the review flag on a question.
	ActionFlag Action = "flag"
	// ActionNavigate moves the cursor one step ("prev"/"next").
	ActionNavigate Action = "navigate"
	// ActionJump sets the cursor to an index.
	ActionJump Action = "jump"
	// ActionSubmit asks for the confirmation summary (unanswered/flagged).
	ActionSubmit Action = "submit"
	// ActionConfirm finalizes the submission.
	ActionConfirm Action = "confirm"
	// ActionRetry re-sends a submission that failed to persist.
	ActionRetry Action = "retry"
	// ActionPing keeps the connection alive.
	ActionPing Action = "ping"
)

// RequestPayload is the single client message shape; unused fields stay
// empty per action.
type RequestPayload struct {
	Action    Action            `json:"action"`
	QID       string            `json:"q_id,omitempty"`
	Value     model.AnswerValue `json:"value,omitempty"`
	Direction string            `json:"direction,omitempty"` // "prev" | "next"
	Index     int               `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventFlagged   Event = "flagged"
	EventCursor    Event = "cursor"
	EventSummary   Event = "summary"
	EventSubmitted Event = "submitted"
	EventTimer     Event = "timer"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

type FlaggedResponse struct {
	Event   Event  `json:"event"`
	QID     string `json:"q_id"`
	Flagged bool   `json:"flagged"`
}

type CursorResponse struct {
	Event  Event `json:"event"`
	Cursor int   `json:"cursor"`
}

// SummaryResponse carries the submit-confirmation counts.
type SummaryResponse struct {
	Event      Event `json:"event"`
	Unanswered int   `json:"unanswered"`
	Flagged    int   `json:"flagged"`
}

// SubmittedResponse reports the terminal state of the attempt. Persisted is
// false when grading succeeded but the submission record could not be
// saved; the client should offer a retry.
type SubmittedResponse struct {
	Event     Event `json:"event"`
	Score     int   `json:"score"`
	Forced    bool  `json:"forced"`
	Persisted bool  `json:"persisted"`
}

// TimerResponse is pushed periodically with the countdown value.
type TimerResponse struct {
	Event     Event         `json:"event"`
	Remaining int           `json:"remaining_seconds"`
	State     session.State `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
