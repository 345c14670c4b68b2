package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
)

// Feed provides the raw data the engine aggregates.
type Feed interface {
	AssessmentSheet(ctx context.Context, assessmentID int) (Sheet, error)
	CourseSheet(ctx context.Context, courseID int) (CourseSheet, error)
	// CourseAssessments returns the ids of the assessments of the course.
	CourseAssessments(ctx context.Context, courseID int) ([]int, error)
}

type (
	AssessmentSource interface {
		GetByID(ctx context.Context, id int) (assessment.Assessment, error)
		Query(ctx context.Context, filter assessment.QueryFilter, orderings []core.DBOrdering) ([]assessment.Assessment, error)
	}

	CourseSource interface {
		GetByID(ctx context.Context, id int) (course.Course, error)
		ListStudents(ctx context.Context, courseID int) ([]user.User, error)
	}

	ScoreSource interface {
		ListByAssessment(ctx context.Context, assessmentID int) ([]score.Score, error)
	}

	UserSource interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	serviceFeed struct {
		assessments AssessmentSource
		courses     CourseSource
		scores      ScoreSource
		users       UserSource
	}
)

var _ Feed = (*serviceFeed)(nil) // interface compliance check

// NewServiceFeed builds a Feed on top of the domain services.
func NewServiceFeed(assessments AssessmentSource, courses CourseSource, scores ScoreSource, users UserSource) Feed {
	return &serviceFeed{
		assessments: assessments,
		courses:     courses,
		scores:      scores,
		users:       users,
	}
}

func toStudents(users []user.User) []Student {
	students := make([]Student, 0, len(users))
	for _, usr := range users {
		students = append(students, Student{ID: usr.ID, Name: usr.Name})
	}
	return students
}

func (f *serviceFeed) roster(ctx context.Context, courseID int) ([]Student, error) {
	users, err := f.courses.ListStudents(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing course students")
	}
	return toStudents(users), nil
}

func (f *serviceFeed) sheet(ctx context.Context, a assessment.Assessment, roster []Student) (Sheet, error) {
	scores, err := f.scores.ListByAssessment(ctx, a.ID)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "listing scores")
	}

	sheet := Sheet{
		AssessmentID: a.ID,
		Title:        a.Title,
		CourseID:     a.CourseID,
		Questions:    a.Questions,
		Roster:       roster,
		Scores:       scores,
	}

	enrolled := make(map[int]bool, len(roster))
	for _, s := range roster {
		enrolled[s.ID] = true
	}
	for _, sc := range scores {
		if enrolled[sc.StudentID] {
			continue
		}
		enrolled[sc.StudentID] = true // look each student up once

		usr, err := f.users.GetByID(ctx, sc.StudentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return Sheet{}, errors.Wrap(err, "getting student")
		}
		sheet.Others = append(sheet.Others, Student{ID: usr.ID, Name: usr.Name})
	}
	return sheet, nil
}

func (f *serviceFeed) AssessmentSheet(ctx context.Context, assessmentID int) (Sheet, error) {
	a, err := f.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return Sheet{}, err
	}

	var roster []Student
	if a.CourseID.Valid {
		roster, err = f.roster(ctx, a.CourseID.ID)
		if err != nil {
			return Sheet{}, err
		}
	}
	return f.sheet(ctx, a, roster)
}

func (f *serviceFeed) CourseSheet(ctx context.Context, courseID int) (CourseSheet, error) {
	c, err := f.courses.GetByID(ctx, courseID)
	if err != nil {
		return CourseSheet{}, err
	}
	roster, err := f.roster(ctx, courseID)
	if err != nil {
		return CourseSheet{}, err
	}
	assessments, err := f.assessments.Query(ctx, assessment.QueryFilter{CourseID: core.NewOptionalID(courseID)}, nil)
	if err != nil {
		return CourseSheet{}, errors.Wrap(err, "querying assessments")
	}

	cs := CourseSheet{
		CourseID: c.ID,
		Name:     c.Name,
		Roster:   roster,
		Sheets:   make([]Sheet, 0, len(assessments)),
	}
	for _, a := range assessments {
		sheet, err := f.sheet(ctx, a, roster)
		if err != nil {
			return CourseSheet{}, err
		}
		cs.Sheets = append(cs.Sheets, sheet)
	}
	return cs, nil
}

func (f *serviceFeed) CourseAssessments(ctx context.Context, courseID int) ([]int, error) {
	assessments, err := f.assessments.Query(ctx, assessment.QueryFilter{CourseID: core.NewOptionalID(courseID)}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	ids := make([]int, 0, len(assessments))
	for _, a := range assessments {
		ids = append(ids, a.ID)
	}
	return ids, nil
}
