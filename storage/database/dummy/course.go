package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[c.OwnerID]; !ok {
		return course.Course{}, user.ErrNotFound
	}
	repo.db.coursePK++
	c.ID = repo.db.coursePK
	stored := c
	repo.db.courses[c.ID] = &stored
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if _, ok := repo.db.users[c.OwnerID]; !ok {
		return course.Course{}, user.ErrNotFound
	}
	orig.Name = c.Name
	orig.OwnerID = c.OwnerID
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

var courseOrderings = map[string]func(a, b course.Course) int{
	"id":        func(a, b course.Course) int { return a.ID - b.ID },
	"name":      func(a, b course.Course) int { return strings.Compare(a.Name, b.Name) },
	"createdAt": func(a, b course.Course) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *courseRepository) FilterCourses(_ context.Context, filter course.QueryFilter, orderings ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.OwnerID != 0 && c.OwnerID != filter.OwnerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		courses = append(courses, *c)
	}

	sortBy(courses, courseOrderings, orderings, func(c course.Course) int { return c.ID })
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int) ([]int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return nil, course.ErrNotFound
	}

	detached := make([]int, 0)
	for _, a := range repo.db.assessments {
		if a.CourseID.Is(id) {
			a.CourseID = core.OptionalID{}
			detached = append(detached, a.ID)
		}
	}
	for key := range repo.db.enrollments {
		if key.courseID == id {
			delete(repo.db.enrollments, key)
		}
	}
	delete(repo.db.courses, id)
	return detached, nil
}

func (repo *courseRepository) Enroll(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[enr.CourseID]; !ok {
		return course.Enrollment{}, course.ErrNotFound
	}
	if _, ok := repo.db.users[enr.StudentID]; !ok {
		return course.Enrollment{}, user.ErrNotFound
	}

	key := enrollmentKey{courseID: enr.CourseID, studentID: enr.StudentID}
	if existing, ok := repo.db.enrollments[key]; ok {
		return *existing, nil
	}
	stored := enr
	repo.db.enrollments[key] = &stored
	return enr, nil
}

func (repo *courseRepository) Unenroll(_ context.Context, courseID, studentID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := enrollmentKey{courseID: courseID, studentID: studentID}
	if _, ok := repo.db.enrollments[key]; !ok {
		return course.ErrNotEnrolled
	}
	delete(repo.db.enrollments, key)
	return nil
}

func (repo *courseRepository) ListStudents(_ context.Context, courseID int) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]user.User, 0)
	for key := range repo.db.enrollments {
		if key.courseID != courseID {
			continue
		}
		if usr, ok := repo.db.users[key.studentID]; ok {
			student := *usr
			student.Roles = copyStrings(usr.Roles)
			students = append(students, student)
		}
	}

	byName := []core.DBOrdering{{Field: "name", Ascending: true}}
	sortBy(students, userOrderings, byName, func(u user.User) int { return u.ID })
	return students, nil
}
