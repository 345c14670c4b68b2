package score

import "time"

type Score struct {
	ID         int       `json:"id" db:"id"`
	StudentID  int       `json:"studentId" db:"student_id"`
	QuestionID int       `json:"questionId" db:"question_id"`
	Value      float64   `json:"value" db:"value"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"` // UTC
}

// SubmitScore is one answer of a batch submission.
// Re-submitting a (studentId, questionId) pair overwrites its value.
type SubmitScore struct {
	StudentID  int      `json:"studentId" validate:"required"`
	QuestionID int      `json:"questionId" validate:"required"`
	Value      *float64 `json:"value" validate:"required,gte=0"`
}

type DeleteScore struct {
	StudentID  int `query:"studentId" validate:"required"`
	QuestionID int `query:"questionId" validate:"required"`
}
