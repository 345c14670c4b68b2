package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = core.NewNotFoundError("course not found")
	ErrNotEnrolled    = core.NewNotFoundError("student is not enrolled in this course")
	errOwnerNotFound  = "owner not found"
	errOwnerRole      = "owner must be a teacher or an admin"
	errStudentMissing = "student not found"
	errStudentRole    = "user is not a student"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		FilterCourses(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Course, error)
		// DeleteCourse removes the course and its enrollments; its assessments are detached, not deleted.
		// Returns the IDs of the detached assessments.
		DeleteCourse(ctx context.Context, id int) (detached []int, err error)

		// Enroll is idempotent: enrolling an enrolled student returns the existing Enrollment.
		Enroll(ctx context.Context, enr Enrollment) (Enrollment, error)
		Unenroll(ctx context.Context, courseID, studentID int) error
		// ListStudents returns the course roster ordered by name then id.
		ListStudents(ctx context.Context, courseID int) ([]user.User, error)
	}

	// UserGetter is the part of user.Service needed to check owners & students.
	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error)
		Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id int) (Course, error)
		Delete(ctx context.Context, id int) error

		Enroll(ctx context.Context, courseID, studentID int) (Enrollment, error)
		Unenroll(ctx context.Context, courseID, studentID int) error
		ListStudents(ctx context.Context, courseID int) ([]user.User, error)
	}

	service struct {
		repo        Repository
		users       UserGetter
		invalidator core.ReportInvalidator
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, users UserGetter, invalidator core.ReportInvalidator) Service {
	if invalidator == nil {
		invalidator = core.NopInvalidator
	}
	return &service{repo: repo, users: users, invalidator: invalidator}
}

func (svc *service) checkOwner(ctx context.Context, ownerID int) error {
	owner, err := svc.users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "ownerId", Error: errOwnerNotFound})
		}
		return errors.Wrap(err, "getting owner")
	}
	if !owner.CanOwnCourses() {
		return core.NewValidationError(nil, core.FieldError{Field: "ownerId", Error: errOwnerRole})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkOwner(ctx, nc.OwnerID); err != nil {
		return Course{}, err
	}

	now := NowFunc().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Name:      nc.Name,
		OwnerID:   nc.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error) {
	if uc.OwnerID != orig.OwnerID {
		if err := svc.checkOwner(ctx, uc.OwnerID); err != nil {
			return Course{}, err
		}
	}

	c, err := svc.repo.UpdateCourse(ctx, Course{
		ID:        orig.ID,
		Name:      uc.Name,
		OwnerID:   uc.OwnerID,
		CreatedAt: orig.CreatedAt,
		UpdatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Course{}, err
	}
	svc.invalidator.InvalidateCourse(c.ID)
	return c, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Course, error) {
	return svc.repo.FilterCourses(ctx, filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	detached, err := svc.repo.DeleteCourse(ctx, id)
	if err != nil {
		return err
	}
	svc.invalidator.InvalidateCourse(id)
	for _, assessmentID := range detached {
		svc.invalidator.InvalidateAssessment(assessmentID)
	}
	return nil
}

func (svc *service) Enroll(ctx context.Context, courseID, studentID int) (Enrollment, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: errStudentMissing})
		}
		return Enrollment{}, errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: errStudentRole})
	}

	enr, err := svc.repo.Enroll(ctx, Enrollment{
		CourseID:  courseID,
		StudentID: studentID,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Enrollment{}, err
	}
	svc.invalidator.InvalidateCourse(courseID)
	return enr, nil
}

func (svc *service) Unenroll(ctx context.Context, courseID, studentID int) error {
	if err := svc.repo.Unenroll(ctx, courseID, studentID); err != nil {
		return err
	}
	svc.invalidator.InvalidateCourse(courseID)
	return nil
}

func (svc *service) ListStudents(ctx context.Context, courseID int) ([]user.User, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.ListStudents(ctx, courseID)
}
