package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeMatching       QuestionType = "MATCHING"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Gradable reports whether the type carries a machine-checkable answer key
// used by the automatic scorer. Matching answers are captured and shown to
// reviewers but stay out of the automatic score.
func (t QuestionType) Gradable() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// Option is a selectable choice for the choice-based question types.
type Option struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// MatchItem is one entry in a matching question's prompt or answer column.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question represents a single exam question. Immutable once an exam starts:
// sessions operate on a snapshot taken at load time.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	QBankID  uuid.UUID    `json:"qbank_id"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Type     QuestionType `json:"type"`

	// Options is set for SINGLE_CHOICE and MULTIPLE_CHOICE.
	Options []Option `json:"options,omitempty"`
	// Prompts and Matches are the two columns of a MATCHING question.
	Prompts []MatchItem `json:"prompts,omitempty"`
	Matches []MatchItem `json:"matches,omitempty"`

	// AnswerKey is empty for ESSAY; its shape follows Type otherwise.
	AnswerKey AnswerValue `json:"answer_key"`
	OrderNum  int         `json:"order_num"`
}

// Validate checks the answer-key invariants for the question's type:
// every gradable type must carry a non-empty key consistent with its
// option set, and a matching key must cover every prompt with a valid
// answer id.
func (q *Question) Validate() error {
	switch q.Type {
	case QuestionTypeSingleChoice:
		if len(q.Options) == 0 {
			return ErrNoOptions
		}
		if q.AnswerKey.OptionID == "" || !q.hasOption(q.AnswerKey.OptionID) {
			return ErrInvalidAnswerKey
		}
	case QuestionTypeMultipleChoice:
		if len(q.Options) == 0 {
			return ErrNoOptions
		}
		if len(q.AnswerKey.OptionIDs) == 0 {
			return ErrInvalidAnswerKey
		}
		for _, id := range q.AnswerKey.OptionIDs {
			if !q.hasOption(id) {
				return ErrInvalidAnswerKey
			}
		}
	case QuestionTypeMatching:
		if len(q.Prompts) == 0 || len(q.Matches) == 0 {
			return ErrNoOptions
		}
		if len(q.AnswerKey.Pairs) != len(q.Prompts) {
			return ErrInvalidAnswerKey
		}
		for _, p := range q.Prompts {
			answerID, ok := q.AnswerKey.Pairs[p.ID]
			if !ok || !q.hasMatch(answerID) {
				return ErrInvalidAnswerKey
			}
		}
	case QuestionTypeShortAnswer:
		if q.AnswerKey.Text == "" {
			return ErrInvalidAnswerKey
		}
	case QuestionTypeEssay:
		// Graded out of band; no key.
	default:
		return ErrUnknownQuestionType
	}
	return nil
}

func (q *Question) hasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (q *Question) hasMatch(id string) bool {
	for _, m := range q.Matches {
		if m.ID == id {
			return true
		}
	}
	return false
}

// QuestionForStudent is a question with the answer key stripped, as sent to
// students in the exam paper payload.
type QuestionForStudent struct {
	ID       uuid.UUID    `json:"id"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Type     QuestionType `json:"type"`
	Options  []Option     `json:"options,omitempty"`
	Prompts  []MatchItem  `json:"prompts,omitempty"`
	Matches  []MatchItem  `json:"matches,omitempty"`
	OrderNum int          `json:"order_num"`
}

// ForStudent strips the answer key from a question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		Type:     q.Type,
		Options:  q.Options,
		Prompts:  q.Prompts,
		Matches:  q.Matches,
		OrderNum: q.OrderNum,
	}
}

// AddQuestionRequest is the payload for adding a question to a bank.
type AddQuestionRequest struct {
	Text      string      `json:"text" binding:"required,min=1,max=2000"`
	ImageURL  string      `json:"image_url" binding:"omitempty,max=500"`
	Type      string      `json:"type" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE MATCHING SHORT_ANSWER ESSAY"`
	Options   []Option    `json:"options" binding:"omitempty,dive"`
	Prompts   []MatchItem `json:"prompts" binding:"omitempty,dive"`
	Matches   []MatchItem `json:"matches" binding:"omitempty,dive"`
	AnswerKey AnswerValue `json:"answer_key"`
	OrderNum  int         `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a bank's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
