package services

import (
	"math"
	"slices"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// QuestionResult is the per-question outcome of a graded attempt
type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Correct    bool `json:"correct"`
	Answered   bool `json:"answered"`
}

// GradeQuestion has no partial credit: the answered set must equal the correct set
func GradeQuestion(question *models.QuizQuestion, answered []int) bool {
	selected := normalizeIndices(answered)
	correct := question.CorrectIndices()

	switch question.Type {
	case models.SingleChoice:
		return len(correct) == 1 && len(selected) == 1 && selected[0] == correct[0]
	case models.MultipleChoice:
		return len(correct) > 0 && slices.Equal(selected, correct)
	default:
		return false
	}
}

// ScoreAttempt returns the percentage of all questions answered correctly.
// Questions missing from answers count as incorrect.
func ScoreAttempt(questions []*models.QuizQuestion, answers map[uint][]int) (float64, []QuestionResult) {
	results := make([]QuestionResult, 0, len(questions))
	if len(questions) == 0 {
		return 0, results
	}

	correct := 0
	for _, q := range questions {
		selected, answered := answers[q.ID]
		ok := answered && GradeQuestion(q, selected)
		if ok {
			correct++
		}
		results = append(results, QuestionResult{QuestionID: q.ID, Correct: ok, Answered: answered})
	}

	score := 100 * float64(correct) / float64(len(questions))
	return math.Round(score*100) / 100, results
}

// Verdict decides pass/fail; an exam over its time limit fails regardless of score
func Verdict(score float64, settings models.QuizSettings, elapsed time.Duration) (passed bool, timedOut bool) {
	if settings.IsTimed() && elapsed > settings.TimeLimit {
		return false, true
	}
	return score >= float64(settings.PassingScore), false
}

func normalizeIndices(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}
