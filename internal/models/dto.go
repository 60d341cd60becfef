package models

// CourseOutline is the nested read model of a course's content
type CourseOutline struct {
	Course   *Course          `json:"course"`
	Sections []SectionOutline `json:"sections"`
}

type SectionOutline struct {
	ID         uint         `json:"id"`
	Title      string       `json:"title"`
	OrderIndex int          `json:"order_index"`
	Lessons    []LessonView `json:"lessons"`
}

type LessonView struct {
	*Lesson
	Completed bool           `json:"completed"`
	Questions []QuestionView `json:"questions,omitempty"`
}

// QuestionView hides answer correctness from learners
type QuestionView struct {
	ID         uint         `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	OrderIndex int          `json:"order_index"`
	Answers    []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

func NewQuestionView(q *QuizQuestion, revealAnswers bool) QuestionView {
	view := QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		OrderIndex: q.OrderIndex,
		Answers:    make([]AnswerView, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		answer := AnswerView{ID: a.ID, Text: a.Text}
		if revealAnswers {
			isCorrect := a.IsCorrect
			answer.IsCorrect = &isCorrect
		}
		view.Answers = append(view.Answers, answer)
	}
	return view
}
