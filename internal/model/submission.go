package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the durable outcome of one exam session. At most one row
// exists per (student, exam); a resubmission overwrites the prior record.
// Immutable once written except for an explicit admin score override.
type Submission struct {
	SessionID   uuid.UUID `json:"session_id"`
	StudentID   int       `json:"student_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// OverrideScoreRequest is the payload for an admin manual score override.
type OverrideScoreRequest struct {
	Score int `json:"score" binding:"min=0,max=100"`
}

// EssayReview holds the AI-suggested grade for one essay answer, pending
// human review. The automatic scorer never reads these.
type EssayReview struct {
	ID             uuid.UUID  `json:"id"`
	ExamID         uuid.UUID  `json:"exam_id"`
	StudentID      int        `json:"student_id"`
	QuestionID     uuid.UUID  `json:"question_id"`
	AnswerText     string     `json:"answer_text"`
	SuggestedScore *float64   `json:"suggested_score,omitempty"`
	Feedback       string     `json:"feedback,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
