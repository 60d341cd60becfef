package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func question(id uint, t models.QuestionType, correct ...bool) *models.QuizQuestion {
	q := &models.QuizQuestion{ID: id, Type: t}
	for _, c := range correct {
		q.Answers = append(q.Answers, models.QuizAnswer{IsCorrect: c})
	}
	return q
}

func TestGradeQuestion(t *testing.T) {
	single := question(1, models.SingleChoice, false, true, false)
	multi := question(2, models.MultipleChoice, true, false, true)

	tests := []struct {
		name     string
		question *models.QuizQuestion
		answered []int
		want     bool
	}{
		{"single correct", single, []int{1}, true},
		{"single wrong", single, []int{0}, false},
		{"single two picks", single, []int{1, 2}, false},
		{"single repeated pick", single, []int{1, 1}, true},
		{"single empty", single, []int{}, false},
		{"multi exact set", multi, []int{0, 2}, true},
		{"multi order does not matter", multi, []int{2, 0}, true},
		{"multi subset", multi, []int{0}, false},
		{"multi superset", multi, []int{0, 1, 2}, false},
		{"multi out of range", multi, []int{0, 2, 9}, false},
		{"malformed single with two keys", question(3, models.SingleChoice, true, true), []int{0}, false},
		{"unknown type", question(4, models.QuestionType("essay"), true), []int{0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeQuestion(tt.question, tt.answered))
		})
	}
}

func TestScoreAttempt(t *testing.T) {
	questions := []*models.QuizQuestion{
		question(1, models.SingleChoice, true, false),
		question(2, models.SingleChoice, false, true),
		question(3, models.MultipleChoice, true, true, false),
	}

	score, results := ScoreAttempt(questions, map[uint][]int{1: {0}, 3: {0, 1}})
	assert.Equal(t, 66.67, score)
	assert.Equal(t, []QuestionResult{
		{QuestionID: 1, Correct: true, Answered: true},
		{QuestionID: 2, Correct: false, Answered: false},
		{QuestionID: 3, Correct: true, Answered: true},
	}, results)

	score, results = ScoreAttempt(nil, nil)
	assert.Zero(t, score)
	assert.Empty(t, results)
}

func TestVerdict(t *testing.T) {
	practice := models.QuizSettings{Type: models.QuizPractice, PassingScore: 70}
	exam := models.QuizSettings{Type: models.QuizExam, PassingScore: 70, TimeLimit: 10 * time.Minute}

	tests := []struct {
		name         string
		score        float64
		settings     models.QuizSettings
		elapsed      time.Duration
		wantPassed   bool
		wantTimedOut bool
	}{
		{"practice pass at threshold", 70, practice, time.Hour, true, false},
		{"practice fail below threshold", 69.99, practice, 0, false, false},
		{"exam within limit", 100, exam, 10 * time.Minute, true, false},
		{"exam over limit fails regardless of score", 100, exam, 10*time.Minute + time.Second, false, true},
		{"exam without limit", 80, models.QuizSettings{Type: models.QuizExam, PassingScore: 70}, time.Hour, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, timedOut := Verdict(tt.score, tt.settings, tt.elapsed)
			assert.Equal(t, tt.wantPassed, passed)
			assert.Equal(t, tt.wantTimedOut, timedOut)
		})
	}
}
