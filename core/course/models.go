package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   int       `json:"ownerId" db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"` // UTC
}

type Enrollment struct {
	CourseID  int       `json:"courseId" db:"course_id"`
	StudentID int       `json:"studentId" db:"student_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name    string `json:"name" validate:"notblank"`
	OwnerID int    `json:"ownerId" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Zero values keep the current ones.
type UpdateCourse struct {
	Name    string `json:"name"`
	OwnerID int    `json:"ownerId" validate:"gte=0"`
}

func (uc *UpdateCourse) Validate(origCourse Course, validate *validator.Validate) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origCourse.Name
	}
	if uc.OwnerID == 0 {
		uc.OwnerID = origCourse.OwnerID
	}
	return validate.Struct(uc)
}

type EnrollStudent struct {
	StudentID int `json:"studentId" validate:"required"`
}

type QueryFilter struct {
	Search  string `query:"search"`
	OwnerID int    `query:"ownerId"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
