package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, name, email string, roles []string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course owned by owner, with students enrolled.
func CreateCourse(t *testing.T, repo course.Repository, name string, owner user.User, students ...user.User) course.Course {
	t.Helper()
	ctx := context.Background()
	tstamp := time.Now().UTC()
	c, err := repo.CreateCourse(ctx, course.Course{Name: name, OwnerID: owner.ID, CreatedAt: tstamp, UpdatedAt: tstamp})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	for _, s := range students {
		if _, err = repo.Enroll(ctx, course.Enrollment{CourseID: c.ID, StudentID: s.ID, CreatedAt: tstamp}); err != nil {
			t.Fatalf("CreateCourse() enroll failed: %v", err)
		}
	}
	return c
}

// CreateAssessment creates an assessment with one question per maxPoints value (positions 1, 2, ...).
func CreateAssessment(
	t *testing.T,
	repo assessment.Repository,
	title string,
	courseID core.OptionalID,
	maxPoints ...float64,
) assessment.Assessment {
	t.Helper()
	tstamp := time.Now().UTC()
	questions := make([]assessment.Question, len(maxPoints))
	for i, mp := range maxPoints {
		questions[i] = assessment.Question{
			Text:      "Question " + string(rune('A'+i)),
			MaxPoints: mp,
			Position:  i + 1,
			CreatedAt: tstamp,
		}
	}
	a, err := repo.CreateAssessment(context.Background(), assessment.Assessment{
		Title:     title,
		CourseID:  courseID,
		Questions: questions,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}
