package grading

import (
	"testing"

	"github.com/google/uuid"
	"github.com/classware/cbt-backend/internal/model"
)

func singleChoice(correct string) model.Question {
	return model.Question{
		ID:   uuid.New(),
		Type: model.QuestionTypeSingleChoice,
		Options: []model.Option{
			{ID: "opt1", Text: "one"},
			{ID: "opt2", Text: "two"},
			{ID: "opt3", Text: "three"},
		},
		AnswerKey: model.AnswerValue{OptionID: correct},
	}
}

func multiChoice(correct ...string) model.Question {
	return model.Question{
		ID:   uuid.New(),
		Type: model.QuestionTypeMultipleChoice,
		Options: []model.Option{
			{ID: "opt1"}, {ID: "opt2"}, {ID: "opt3"}, {ID: "opt4"},
		},
		AnswerKey: model.AnswerValue{OptionIDs: correct},
	}
}

func shortAnswer(correct string) model.Question {
	return model.Question{
		ID:        uuid.New(),
		Type:      model.QuestionTypeShortAnswer,
		AnswerKey: model.AnswerValue{Text: correct},
	}
}

func essay() model.Question {
	return model.Question{ID: uuid.New(), Type: model.QuestionTypeEssay}
}

func matching() model.Question {
	return model.Question{
		ID:      uuid.New(),
		Type:    model.QuestionTypeMatching,
		Prompts: []model.MatchItem{{ID: "p1"}, {ID: "p2"}},
		Matches: []model.MatchItem{{ID: "a1"}, {ID: "a2"}},
		AnswerKey: model.AnswerValue{
			Pairs: map[string]string{"p1": "a1", "p2": "a2"},
		},
	}
}

func pick(q model.Question, id string) model.Answer {
	return model.Answer{QuestionID: q.ID, Value: model.AnswerValue{OptionID: id}}
}

func TestScore_EmptyGradableSetIsPerfect(t *testing.T) {
	cases := []struct {
		name      string
		questions []model.Question
	}{
		{name: "no questions", questions: nil},
		{name: "only essays", questions: []model.Question{essay(), essay()}},
		{name: "essay and matching", questions: []model.Question{essay(), matching()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.questions, nil); got != 100 {
				t.Fatalf("expected 100, got %d", got)
			}
		})
	}
}

func TestScore_AllCorrectAndAllWrong(t *testing.T) {
	q1 := singleChoice("opt1")
	q2 := multiChoice("opt1", "opt3")
	q3 := shortAnswer("42")
	questions := []model.Question{q1, q2, q3}

	allCorrect := []model.Answer{
		pick(q1, "opt1"),
		{QuestionID: q2.ID, Value: model.AnswerValue{OptionIDs: []string{"opt1", "opt3"}}},
		{QuestionID: q3.ID, Value: model.AnswerValue{Text: "42"}},
	}
	if got := Score(questions, allCorrect); got != 100 {
		t.Fatalf("all correct: expected 100, got %d", got)
	}

	allWrong := []model.Answer{
		pick(q1, "opt2"),
		{QuestionID: q2.ID, Value: model.AnswerValue{OptionIDs: []string{"opt2"}}},
		{QuestionID: q3.ID, Value: model.AnswerValue{Text: "43"}},
	}
	if got := Score(questions, allWrong); got != 0 {
		t.Fatalf("all wrong: expected 0, got %d", got)
	}

	if got := Score(questions, nil); got != 0 {
		t.Fatalf("no answers: expected 0, got %d", got)
	}
}

func TestScore_EssayExcludedFromDenominator(t *testing.T) {
	q1 := singleChoice("opt1")
	q2 := singleChoice("opt1")
	questions := []model.Question{q1, q2, essay()}

	answers := []model.Answer{pick(q1, "opt1"), pick(q2, "opt1")}
	if got := Score(questions, answers); got != 100 {
		t.Fatalf("expected 100 with blank essay, got %d", got)
	}
}

func TestScore_MatchingExcludedFromScore(t *testing.T) {
	q1 := singleChoice("opt1")
	m := matching()
	questions := []model.Question{q1, m}

	// A correct matching answer neither helps...
	answers := []model.Answer{
		pick(q1, "opt2"),
		{QuestionID: m.ID, Value: model.AnswerValue{Pairs: map[string]string{"p1": "a1", "p2": "a2"}}},
	}
	if got := Score(questions, answers); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}

	// ...nor does a wrong one hurt.
	answers = []model.Answer{
		pick(q1, "opt1"),
		{QuestionID: m.ID, Value: model.AnswerValue{Pairs: map[string]string{"p1": "a2", "p2": "a1"}}},
	}
	if got := Score(questions, answers); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestScore_SetOrderDoesNotMatter(t *testing.T) {
	q := multiChoice("opt1", "opt3")
	answers := []model.Answer{
		{QuestionID: q.ID, Value: model.AnswerValue{OptionIDs: []string{"opt3", "opt1"}}},
	}
	if got := Score([]model.Question{q}, answers); got != 100 {
		t.Fatalf("reordered set should count correct, got %d", got)
	}

	subset := []model.Answer{
		{QuestionID: q.ID, Value: model.AnswerValue{OptionIDs: []string{"opt1"}}},
	}
	if got := Score([]model.Question{q}, subset); got != 0 {
		t.Fatalf("subset should count wrong, got %d", got)
	}

	superset := []model.Answer{
		{QuestionID: q.ID, Value: model.AnswerValue{OptionIDs: []string{"opt1", "opt3", "opt4"}}},
	}
	if got := Score([]model.Question{q}, superset); got != 0 {
		t.Fatalf("superset should count wrong, got %d", got)
	}
}

func TestScore_AnswerOrderDoesNotMatter(t *testing.T) {
	q1 := singleChoice("opt1")
	q2 := singleChoice("opt2")
	q3 := shortAnswer("x")
	questions := []model.Question{q1, q2, q3}

	forward := []model.Answer{
		pick(q1, "opt1"),
		pick(q2, "opt3"),
		{QuestionID: q3.ID, Value: model.AnswerValue{Text: "x"}},
	}
	backward := []model.Answer{forward[2], forward[1], forward[0]}

	if a, b := Score(questions, forward), Score(questions, backward); a != b {
		t.Fatalf("permuted answers changed score: %d vs %d", a, b)
	}
}

func TestScore_MalformedValueIsJustWrong(t *testing.T) {
	q := singleChoice("opt1")
	answers := []model.Answer{
		// Wrong shape for the type: set instead of a single option id.
		{QuestionID: q.ID, Value: model.AnswerValue{OptionIDs: []string{"opt1"}}},
	}
	if got := Score([]model.Question{q}, answers); got != 0 {
		t.Fatalf("expected malformed value to score 0, got %d", got)
	}
}

func TestScore_RoundsHalfAwayFromZero(t *testing.T) {
	// 1 of 8 correct = 12.5 → rounds to 13.
	questions := make([]model.Question, 8)
	for i := range questions {
		questions[i] = singleChoice("opt1")
	}
	answers := []model.Answer{pick(questions[0], "opt1")}

	if got := Score(questions, answers); got != 13 {
		t.Fatalf("expected 12.5 to round to 13, got %d", got)
	}

	// 1 of 3 correct = 33.33… → 33.
	if got := Score(questions[:3], answers); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	// 2 of 3 correct = 66.67 → 67.
	answers = append(answers, pick(questions[1], "opt1"))
	if got := Score(questions[:3], answers); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
}

func TestScore_DuplicateAnswersLastWriteWins(t *testing.T) {
	q := singleChoice("opt1")
	answers := []model.Answer{pick(q, "opt1"), pick(q, "opt2")}
	if got := Score([]model.Question{q}, answers); got != 0 {
		t.Fatalf("expected last write to win, got %d", got)
	}
}
