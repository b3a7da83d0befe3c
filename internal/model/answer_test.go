package model

import "testing"

func TestAnswerValue_Equal(t *testing.T) {
	tests := []struct {
		name  string
		qtype QuestionType
		got   AnswerValue
		key   AnswerValue
		want  bool
	}{
		{"single match", QuestionTypeSingleChoice,
			AnswerValue{OptionID: "opt1"}, AnswerValue{OptionID: "opt1"}, true},
		{"single mismatch", QuestionTypeSingleChoice,
			AnswerValue{OptionID: "opt2"}, AnswerValue{OptionID: "opt1"}, false},
		{"single empty never matches", QuestionTypeSingleChoice,
			AnswerValue{}, AnswerValue{}, false},
		{"set same order", QuestionTypeMultipleChoice,
			AnswerValue{OptionIDs: []string{"opt1", "opt3"}},
			AnswerValue{OptionIDs: []string{"opt1", "opt3"}}, true},
		{"set reversed order", QuestionTypeMultipleChoice,
			AnswerValue{OptionIDs: []string{"opt3", "opt1"}},
			AnswerValue{OptionIDs: []string{"opt1", "opt3"}}, true},
		{"set subset", QuestionTypeMultipleChoice,
			AnswerValue{OptionIDs: []string{"opt1"}},
			AnswerValue{OptionIDs: []string{"opt1", "opt3"}}, false},
		{"pairs match", QuestionTypeMatching,
			AnswerValue{Pairs: map[string]string{"p1": "a1", "p2": "a2"}},
			AnswerValue{Pairs: map[string]string{"p2": "a2", "p1": "a1"}}, true},
		{"pairs swapped", QuestionTypeMatching,
			AnswerValue{Pairs: map[string]string{"p1": "a2", "p2": "a1"}},
			AnswerValue{Pairs: map[string]string{"p1": "a1", "p2": "a2"}}, false},
		{"pairs missing prompt", QuestionTypeMatching,
			AnswerValue{Pairs: map[string]string{"p1": "a1"}},
			AnswerValue{Pairs: map[string]string{"p1": "a1", "p2": "a2"}}, false},
		{"short answer exact", QuestionTypeShortAnswer,
			AnswerValue{Text: "H2O"}, AnswerValue{Text: "H2O"}, true},
		{"short answer case sensitive", QuestionTypeShortAnswer,
			AnswerValue{Text: "h2o"}, AnswerValue{Text: "H2O"}, false},
		{"essay never machine-equal", QuestionTypeEssay,
			AnswerValue{Text: "same"}, AnswerValue{Text: "same"}, false},
		{"wrong shape for type", QuestionTypeSingleChoice,
			AnswerValue{OptionIDs: []string{"opt1"}}, AnswerValue{OptionID: "opt1"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.got.Equal(tc.qtype, tc.key); got != tc.want {
				t.Fatalf("Equal=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestAnswerValue_IsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		qtype QuestionType
		v     AnswerValue
		want  bool
	}{
		{"zero value single", QuestionTypeSingleChoice, AnswerValue{}, true},
		{"option zero string is an answer", QuestionTypeSingleChoice, AnswerValue{OptionID: "0"}, false},
		{"empty set", QuestionTypeMultipleChoice, AnswerValue{OptionIDs: []string{}}, true},
		{"non-empty set", QuestionTypeMultipleChoice, AnswerValue{OptionIDs: []string{"opt1"}}, false},
		{"empty pairs", QuestionTypeMatching, AnswerValue{}, true},
		{"partial pairs still count", QuestionTypeMatching, AnswerValue{Pairs: map[string]string{"p1": "a1"}}, false},
		{"blank text", QuestionTypeShortAnswer, AnswerValue{Text: "  "}, true},
		{"zero text is an answer", QuestionTypeShortAnswer, AnswerValue{Text: "0"}, false},
		{"blank essay", QuestionTypeEssay, AnswerValue{Text: ""}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.IsEmpty(tc.qtype); got != tc.want {
				t.Fatalf("IsEmpty=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestQuestion_Validate(t *testing.T) {
	opts := []Option{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		name    string
		q       Question
		wantErr error
	}{
		{"valid single choice",
			Question{Type: QuestionTypeSingleChoice, Options: opts, AnswerKey: AnswerValue{OptionID: "a"}}, nil},
		{"single choice key outside options",
			Question{Type: QuestionTypeSingleChoice, Options: opts, AnswerKey: AnswerValue{OptionID: "z"}}, ErrInvalidAnswerKey},
		{"single choice empty key",
			Question{Type: QuestionTypeSingleChoice, Options: opts}, ErrInvalidAnswerKey},
		{"multi choice empty key",
			Question{Type: QuestionTypeMultipleChoice, Options: opts}, ErrInvalidAnswerKey},
		{"matching key must cover every prompt",
			Question{Type: QuestionTypeMatching,
				Prompts:   []MatchItem{{ID: "p1"}, {ID: "p2"}},
				Matches:   []MatchItem{{ID: "a1"}, {ID: "a2"}},
				AnswerKey: AnswerValue{Pairs: map[string]string{"p1": "a1"}}}, ErrInvalidAnswerKey},
		{"matching key must point at real answers",
			Question{Type: QuestionTypeMatching,
				Prompts:   []MatchItem{{ID: "p1"}},
				Matches:   []MatchItem{{ID: "a1"}},
				AnswerKey: AnswerValue{Pairs: map[string]string{"p1": "zz"}}}, ErrInvalidAnswerKey},
		{"essay needs no key",
			Question{Type: QuestionTypeEssay}, nil},
		{"short answer needs text",
			Question{Type: QuestionTypeShortAnswer}, ErrInvalidAnswerKey},
		{"unknown type",
			Question{Type: QuestionType("TRUE_FALSE")}, ErrUnknownQuestionType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
