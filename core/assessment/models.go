package assessment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// DefaultMaxPoints is used for questions created without an explicit maximum.
const DefaultMaxPoints = 100

type Assessment struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	CourseID  core.OptionalID `json:"courseId"`
	Questions []Question      `json:"questions"`
	CreatedAt time.Time       `json:"createdAt"` // UTC
	UpdatedAt time.Time       `json:"updatedAt"` // UTC
}

// QuestionByID returns the question of the assessment with the given ID.
func (a *Assessment) QuestionByID(id int) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Question struct {
	ID           int       `json:"id" db:"id"`
	AssessmentID int       `json:"assessmentId" db:"assessment_id"`
	Text         string    `json:"text" db:"text"`
	MaxPoints    float64   `json:"maxPoints" db:"max_points"`
	Position     int       `json:"position" db:"position"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // UTC
}

// NewAssessment is what the "create assessment" form posts.
// CourseID is a number, or null when no course is selected.
// A non-empty QuestionText creates the first question of the assessment.
type NewAssessment struct {
	Title        string          `json:"title" validate:"notblank"`
	QuestionText string          `json:"questionText"`
	CourseID     core.OptionalID `json:"courseId"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.QuestionText = core.CleanString(na.QuestionText)
	return validate.Struct(na)
}

// UpdateAssessment replaces the title and the course of an Assessment.
// An empty title keeps the current one; a null courseId detaches the assessment from its course.
type UpdateAssessment struct {
	Title    string          `json:"title"`
	CourseID core.OptionalID `json:"courseId"`
}

func (ua *UpdateAssessment) Validate(orig Assessment) {
	title := core.CleanString(ua.Title)
	if title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
}

type NewQuestion struct {
	Text      string  `json:"text" validate:"notblank"`
	MaxPoints float64 `json:"maxPoints" validate:"gte=0"`
	Position  int     `json:"position" validate:"gte=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	if nq.MaxPoints == 0 {
		nq.MaxPoints = DefaultMaxPoints
	}
	return nil
}

// UpdateQuestion defines what may change on a Question. Zero values keep the current ones.
type UpdateQuestion struct {
	Text      string  `json:"text"`
	MaxPoints float64 `json:"maxPoints" validate:"gte=0"`
	Position  int     `json:"position" validate:"gte=0"`
}

func (uq *UpdateQuestion) Validate(orig Question, validate *validator.Validate) error {
	if err := validate.Struct(uq); err != nil {
		return err
	}
	text := core.CleanString(uq.Text)
	if text != "" {
		uq.Text = text
	} else {
		uq.Text = orig.Text
	}
	if uq.MaxPoints == 0 {
		uq.MaxPoints = orig.MaxPoints
	}
	if uq.Position == 0 {
		uq.Position = orig.Position
	}
	return nil
}

type QueryFilter struct {
	Search   string          `query:"search"`
	CourseID core.OptionalID `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
