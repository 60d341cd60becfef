package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuizType string

const (
	QuizPractice QuizType = "practice"
	QuizExam     QuizType = "exam"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
)

const DefaultPassingScore = 70

// QuizSettings is derived from the quiz lesson columns; see Lesson.QuizSettings
type QuizSettings struct {
	Type         QuizType      `json:"type"`
	PassingScore int           `json:"passing_score"`
	TimeLimit    time.Duration `json:"time_limit"`
}

// IsTimed reports whether the time limit is enforced; it only applies to exams
func (s QuizSettings) IsTimed() bool {
	return s.Type == QuizExam && s.TimeLimit > 0
}

type QuizQuestion struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	LessonID   uint         `json:"lesson_id" gorm:"not null;index"`
	Text       string       `json:"text" gorm:"type:text;not null"`
	Type       QuestionType `json:"type" gorm:"type:varchar(20);not null"`
	OrderIndex int          `json:"order_index" gorm:"not null;default:0"`
	CreatedAt  time.Time    `json:"created_at"`

	Answers []QuizAnswer `json:"answers" gorm:"foreignKey:QuestionID"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// CorrectIndices returns the positions of the correct answers in Answers order
func (q *QuizQuestion) CorrectIndices() []int {
	var indices []int
	for i, answer := range q.Answers {
		if answer.IsCorrect {
			indices = append(indices, i)
		}
	}
	return indices
}

type QuizAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	OrderIndex int    `json:"order_index" gorm:"not null;default:0"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// QuizAttempt is opened by a start and graded by the submit that closes it.
// StartedAt is always the server's clock; elapsed time is measured from it.
type QuizAttempt struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         string         `json:"user_id" gorm:"not null;size:255;index:idx_attempt_user_lesson"`
	LessonID       uint           `json:"lesson_id" gorm:"not null;index:idx_attempt_user_lesson"`
	Status         AttemptStatus  `json:"status" gorm:"type:varchar(20);not null;default:'in_progress'"`
	Answers        datatypes.JSON `json:"answers,omitempty"`
	Score          float64        `json:"score"`
	Passed         bool           `json:"passed"`
	TimedOut       bool           `json:"timed_out"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	StartedAt      time.Time      `json:"started_at" gorm:"not null"`
	SubmittedAt    *time.Time     `json:"submitted_at,omitempty"`
}

func (a *QuizAttempt) IsOpen() bool {
	return a.Status == AttemptInProgress
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
