package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft      ExamStatus = "DRAFT"
	ExamStatusPublished  ExamStatus = "PUBLISHED"
	ExamStatusInProgress ExamStatus = "IN_PROGRESS"
	ExamStatusCompleted  ExamStatus = "COMPLETED"
	ExamStatusArchived   ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	AuthorID        int        `json:"author_id"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	EntryToken      string     `json:"entry_token,omitempty"`
	QBankID         *uuid.UUID `json:"qbank_id,omitempty"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
// Duration must be positive and a scheduled end must follow the start.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	Category        string     `json:"category" binding:"omitempty,max=100"`
	ScheduledStart  *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	EntryToken      string     `json:"entry_token" binding:"omitempty,min=4,max=20"`
	QBankID         *uuid.UUID `json:"qbank_id" binding:"omitempty"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Category        string     `json:"category" binding:"omitempty,max=100"`
	ScheduledStart  *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	EntryToken      string     `json:"entry_token" binding:"omitempty,min=4,max=20"`
	QBankID         *uuid.UUID `json:"qbank_id" binding:"omitempty"`
}

// ExamPayload is the Redis-cached paper sent to students (no answer keys).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}

// JoinExamRequest is the payload for a student joining an exam.
type JoinExamRequest struct {
	EntryToken string `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// QuestionDisplayMode controls how the exam UI pages questions. It is a
// display preference only and never affects scoring.
type QuestionDisplayMode string

const (
	DisplaySinglePerPage QuestionDisplayMode = "single"
	DisplayAllInOne      QuestionDisplayMode = "all"
)

// ExamSettings is the read-only display settings snapshot handed to a
// session at start.
type ExamSettings struct {
	QuestionDisplayMode QuestionDisplayMode `json:"question_display_mode"`
}
