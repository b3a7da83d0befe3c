// Package grading implements the automatic answer scorer.
package grading

import (
	"math"

	"github.com/google/uuid"
	"github.com/classware/cbt-backend/internal/model"
)

// Score maps a question snapshot and the submitted answers to a single
// score in [0,100]. Pure and deterministic: no I/O, no clock, no
// dependency on the essay oracle.
//
// Only gradable question types (single choice, multiple choice, short
// answer) enter the calculation. An exam with no gradable questions scores
// 100. Answer order is irrelevant; duplicate answers for one question keep
// the last occurrence, matching the session's last-write-wins capture.
func Score(questions []model.Question, answers []model.Answer) int {
	byQuestion := make(map[uuid.UUID]model.AnswerValue, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Value
	}

	gradable := 0
	correct := 0
	for _, q := range questions {
		if !q.Type.Gradable() {
			continue
		}
		gradable++
		if v, ok := byQuestion[q.ID]; ok && v.Equal(q.Type, q.AnswerKey) {
			correct++
		}
	}

	if gradable == 0 {
		return 100
	}

	// Round half away from zero.
	return int(math.Round(float64(correct) / float64(gradable) * 100))
}
