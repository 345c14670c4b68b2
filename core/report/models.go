package report

import (
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/score"
)

// Policy decides how unanswered questions weigh in the averages.
type Policy string

const (
	// PolicySkip leaves missing answers out of every average.
	PolicySkip Policy = "skip"
	// PolicyZero counts missing answers as 0.
	PolicyZero Policy = "zero"
)

func PolicyFromConfig(conf core.ReportConfig) Policy {
	if conf.MissingAsZero {
		return PolicyZero
	}
	return PolicySkip
}

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusMissing  Status = "missing"
)

type Student struct {
	ID   int
	Name string
}

// Sheet is everything needed to compute the report of one assessment.
type Sheet struct {
	AssessmentID int
	Title        string
	CourseID     core.OptionalID
	Questions    []assessment.Question
	// Roster holds the students enrolled in the assessment's course (empty without a course).
	Roster []Student
	// Others holds the students outside the roster who have scores.
	Others []Student
	Scores []score.Score
}

// CourseSheet feeds a CourseReport; every Sheet shares the course roster.
type CourseSheet struct {
	CourseID int
	Name     string
	Roster   []Student
	Sheets   []Sheet
}

type (
	StudentRow struct {
		StudentID int    `json:"studentId"`
		Name      string `json:"name"`
		Enrolled  bool   `json:"enrolled"`
		// Scores maps each question ID to the student's percentage, null when unanswered.
		Scores   map[int]*float64 `json:"scores"`
		Answered int              `json:"answered"`
		Status   Status           `json:"status"`
		Average  *float64         `json:"average"`
	}

	QuestionStats struct {
		QuestionID int      `json:"questionId"`
		Text       string   `json:"text"`
		MaxPoints  float64  `json:"maxPoints"`
		Position   int      `json:"position"`
		Answered   int      `json:"answered"`
		Average    *float64 `json:"average"`
		Min        *float64 `json:"min"`
		Max        *float64 `json:"max"`
	}

	Completion struct {
		Complete int `json:"complete"`
		Partial  int `json:"partial"`
		Missing  int `json:"missing"`
	}

	AssessmentReport struct {
		AssessmentID int             `json:"assessmentId"`
		Title        string          `json:"title"`
		CourseID     core.OptionalID `json:"courseId"`
		Policy       Policy          `json:"policy"`
		Students     []StudentRow    `json:"students"`
		Questions    []QuestionStats `json:"questions"`
		ClassAverage *float64        `json:"classAverage"`
		Completion   Completion      `json:"completion"`
		ComputedAt   time.Time       `json:"computedAt"`
	}
)

type (
	AssessmentSummary struct {
		AssessmentID int        `json:"assessmentId"`
		Title        string     `json:"title"`
		ClassAverage *float64   `json:"classAverage"`
		Completion   Completion `json:"completion"`
	}

	CourseStudent struct {
		StudentID int      `json:"studentId"`
		Name      string   `json:"name"`
		Enrolled  bool     `json:"enrolled"`
		Average   *float64 `json:"average"`
		// Assessed counts the assessments the average is made of.
		Assessed int `json:"assessed"`
	}

	CourseReport struct {
		CourseID     int                 `json:"courseId"`
		Name         string              `json:"name"`
		Policy       Policy              `json:"policy"`
		Assessments  []AssessmentSummary `json:"assessments"`
		Students     []CourseStudent     `json:"students"`
		ClassAverage *float64            `json:"classAverage"`
		ComputedAt   time.Time           `json:"computedAt"`
	}
)
