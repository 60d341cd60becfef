package models

import (
	"time"
)

type CourseVisibility string

const (
	VisibilityPrivate CourseVisibility = "private"
	VisibilityPublic  CourseVisibility = "public"
)

type CourseStatus string

const (
	CourseDraft    CourseStatus = "draft"
	CoursePending  CourseStatus = "pending"
	CourseApproved CourseStatus = "approved"
	CourseRejected CourseStatus = "rejected"
)

type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentArticle ContentType = "article"
	ContentPDF     ContentType = "pdf"
	ContentQuiz    ContentType = "quiz"
)

type Course struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	OwnerID     string           `json:"owner_id" gorm:"not null;size:255;index"`
	Title       string           `json:"title" gorm:"not null;size:200"`
	Description *string          `json:"description" gorm:"type:text"`
	Visibility  CourseVisibility `json:"visibility" gorm:"type:varchar(20);not null;default:'private'"`
	Status      CourseStatus     `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`

	// Set iff Status is rejected
	RejectionReason *string    `json:"rejection_reason,omitempty" gorm:"type:text"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedBy      *string    `json:"reviewed_by,omitempty" gorm:"size:255"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

// IsOwnedBy reports whether userID authored the course
func (c *Course) IsOwnedBy(userID string) bool {
	return c.OwnerID == userID
}

// IsPubliclyListed is the only state in which non-enrolled learners may see the course
func (c *Course) IsPubliclyListed() bool {
	return c.Visibility == VisibilityPublic && c.Status == CourseApproved
}

type Section struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CourseID   uint      `json:"course_id" gorm:"not null;index"`
	Title      string    `json:"title" gorm:"not null;size:200"`
	OrderIndex int       `json:"order_index" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:SectionID"`
}

func (Section) TableName() string {
	return "sections"
}

type Lesson struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	SectionID   uint        `json:"section_id" gorm:"not null;index"`
	CourseID    uint        `json:"course_id" gorm:"not null;index"`
	Title       string      `json:"title" gorm:"not null;size:200"`
	OrderIndex  int         `json:"order_index" gorm:"not null;default:0"`
	ContentType ContentType `json:"content_type" gorm:"type:varchar(20);not null"`

	// Exactly one content field is set, matching ContentType
	VideoURL    *string   `json:"video_url,omitempty" gorm:"size:1000"`
	ArticleBody *string   `json:"article_body,omitempty" gorm:"type:text"`
	PDFURL      *string   `json:"pdf_url,omitempty" gorm:"column:pdf_url;size:1000"`
	QuizType    *QuizType `json:"quiz_type,omitempty" gorm:"type:varchar(20)"`

	PassingScore     *int `json:"passing_score,omitempty"`
	TimeLimitSeconds *int `json:"time_limit_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// HasMatchingContent reports whether exactly one content field is populated and it matches ContentType
func (l *Lesson) HasMatchingContent() bool {
	set := map[ContentType]bool{
		ContentVideo:   l.VideoURL != nil && *l.VideoURL != "",
		ContentArticle: l.ArticleBody != nil && *l.ArticleBody != "",
		ContentPDF:     l.PDFURL != nil && *l.PDFURL != "",
		ContentQuiz:    l.QuizType != nil,
	}

	count := 0
	for _, ok := range set {
		if ok {
			count++
		}
	}
	return count == 1 && set[l.ContentType]
}

// QuizSettings returns the effective grading settings, applying defaults
func (l *Lesson) QuizSettings() QuizSettings {
	settings := QuizSettings{
		Type:         QuizPractice,
		PassingScore: DefaultPassingScore,
	}
	if l.QuizType != nil {
		settings.Type = *l.QuizType
	}
	if l.PassingScore != nil {
		settings.PassingScore = *l.PassingScore
	}
	if l.TimeLimitSeconds != nil && *l.TimeLimitSeconds > 0 {
		settings.TimeLimit = time.Duration(*l.TimeLimitSeconds) * time.Second
	}
	return settings
}
