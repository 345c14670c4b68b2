package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

const courseColumns = `id, name, owner_id, created_at, updated_at`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func utcCourse(c course.Course) course.Course {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO course (name, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, c.Name, c.OwnerID, c.CreatedAt, c.UpdatedAt).Scan(&c.ID); err != nil {
		if isViolation(err, codeForeignKeyViolation) {
			return course.Course{}, user.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var updated course.Course
	q := `UPDATE course SET name = $1, owner_id = $2, updated_at = $3 WHERE id = $4 RETURNING ` + courseColumns
	err := repo.db.QueryRowxContext(ctx, q, c.Name, c.OwnerID, c.UpdatedAt, c.ID).StructScan(&updated)
	switch {
	case err == sql.ErrNoRows:
		return course.Course{}, course.ErrNotFound
	case isViolation(err, codeForeignKeyViolation):
		return course.Course{}, user.ErrNotFound
	case err != nil:
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return utcCourse(updated), nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var c course.Course
	if err := repo.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return utcCourse(c), nil
}

var courseOrderColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"createdAt": "created_at",
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, orderings ...core.DBOrdering) ([]course.Course, error) {
	var w where
	if filter.OwnerID != 0 {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.Search != "" {
		w.add("name ILIKE ?", containsPattern(filter.Search))
	}

	courses := make([]course.Course, 0)
	q := `SELECT ` + courseColumns + ` FROM course` + w.String() + orderBy(orderings, courseOrderColumns)
	if err := repo.db.SelectContext(ctx, &courses, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	for i := range courses {
		courses[i] = utcCourse(courses[i])
	}
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) ([]int, error) {
	detached := make([]int, 0)
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE assessment SET course_id = NULL WHERE course_id = $1 RETURNING id`
		if err := tx.SelectContext(ctx, &detached, q, id); err != nil {
			return errors.Wrap(err, "detaching assessments")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting course")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "deleting course")
		} else if n == 0 {
			return course.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detached, nil
}

func (repo *courseRepository) Enroll(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	var saved course.Enrollment
	// the no-op update makes RETURNING yield the existing row
	q := `INSERT INTO enrollment (course_id, student_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING course_id, student_id, created_at`
	err := repo.db.QueryRowxContext(ctx, q, enr.CourseID, enr.StudentID, enr.CreatedAt).StructScan(&saved)
	if err != nil {
		if constraint := violatedConstraint(err); constraint != "" {
			if strings.Contains(constraint, "course_id") {
				return course.Enrollment{}, course.ErrNotFound
			}
			return course.Enrollment{}, user.ErrNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	saved.CreatedAt = saved.CreatedAt.UTC()
	return saved, nil
}

func (repo *courseRepository) Unenroll(ctx context.Context, courseID, studentID int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "unenrolling student")
	} else if n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo *courseRepository) ListStudents(ctx context.Context, courseID int) ([]user.User, error) {
	rows := make([]userRow, 0)
	q := `SELECT u.id, u.name, u.email, u.roles, u.created_at, u.updated_at
		FROM "user" u JOIN enrollment e ON e.student_id = u.id
		WHERE e.course_id = $1
		ORDER BY u.name ASC, u.id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	return toUsers(rows), nil
}
