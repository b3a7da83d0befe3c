package model

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Model-level validation errors shared by Question and AnswerValue.
var (
	ErrNoOptions           = errors.New("question has no options")
	ErrInvalidAnswerKey    = errors.New("answer key is empty or inconsistent with the option set")
	ErrUnknownQuestionType = errors.New("unknown question type")
)

// AnswerValue is the tagged union of all answer shapes. Exactly one field
// group is populated, matching the question type:
//
//	SINGLE_CHOICE   → OptionID
//	MULTIPLE_CHOICE → OptionIDs
//	MATCHING        → Pairs (promptID → answerID)
//	SHORT_ANSWER    → Text
//	ESSAY           → Text
//
// The zero value means "no answer".
type AnswerValue struct {
	OptionID  string            `json:"option_id,omitempty"`
	OptionIDs []string          `json:"option_ids,omitempty"`
	Pairs     map[string]string `json:"pairs,omitempty"`
	Text      string            `json:"text,omitempty"`
}

// IsEmpty reports whether the value counts as "unanswered" for the given
// question type: an empty string or an empty set. A selected option id of
// "0" is an answer, not an empty value.
func (v AnswerValue) IsEmpty(t QuestionType) bool {
	switch t {
	case QuestionTypeSingleChoice:
		return v.OptionID == ""
	case QuestionTypeMultipleChoice:
		return len(v.OptionIDs) == 0
	case QuestionTypeMatching:
		return len(v.Pairs) == 0
	case QuestionTypeShortAnswer, QuestionTypeEssay:
		return strings.TrimSpace(v.Text) == ""
	}
	return true
}

// Equal compares a submitted value against another value of the same
// question type. Sets and pair maps compare order-insensitively; a value
// whose populated shape does not match the type compares unequal, never
// panics.
func (v AnswerValue) Equal(t QuestionType, other AnswerValue) bool {
	switch t {
	case QuestionTypeSingleChoice:
		return v.OptionID != "" && v.OptionID == other.OptionID
	case QuestionTypeMultipleChoice:
		return equalIDSet(v.OptionIDs, other.OptionIDs)
	case QuestionTypeMatching:
		return equalPairs(v.Pairs, other.Pairs)
	case QuestionTypeShortAnswer:
		return v.Text != "" && v.Text == other.Text
	}
	return false
}

// equalIDSet compares two option-id sets ignoring member order. Both sides
// are normalized on sorted copies so encounter order never decides
// correctness.
func equalIDSet(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func equalPairs(a, b map[string]string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for k, av := range a {
		if bv, ok := b[k]; !ok || bv != av {
			return false
		}
	}
	return true
}

// Answer binds a value to a question. Session-local and mutable until
// submit; one answer per question id, last write wins.
type Answer struct {
	QuestionID uuid.UUID   `json:"question_id"`
	Value      AnswerValue `json:"value"`
}
