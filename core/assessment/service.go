package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = core.NewNotFoundError("assessment not found")
	ErrQuestionNotFound = core.NewNotFoundError("question not found")
	errCourseNotFound   = "course not found"
)

type (
	Repository interface {
		// CreateAssessment saves the assessment along with its questions.
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		// GetAssessmentByID returns the assessment with its questions ordered by position then id.
		GetAssessmentByID(ctx context.Context, id int) (Assessment, error)
		FilterAssessments(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Assessment, error)
		// DeleteAssessment removes the assessment, its questions and their scores.
		DeleteAssessment(ctx context.Context, id int) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id int) (Question, error)
		// DeleteQuestion removes the question and its scores.
		DeleteQuestion(ctx context.Context, id int) error
		// MaxQuestionScore returns the highest score recorded for the question (0 if none).
		MaxQuestionScore(ctx context.Context, questionID int) (float64, error)
	}

	// CourseGetter is the part of course.Service needed to check course references.
	CourseGetter interface {
		GetByID(ctx context.Context, id int) (course.Course, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAssessment) (Assessment, error)
		Update(ctx context.Context, orig Assessment, ua UpdateAssessment) (Assessment, error)
		Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Assessment, error)
		GetByID(ctx context.Context, id int) (Assessment, error)
		Delete(ctx context.Context, id int) error

		AddQuestion(ctx context.Context, assessmentID int, nq NewQuestion) (Question, error)
		UpdateQuestion(ctx context.Context, orig Question, uq UpdateQuestion) (Question, error)
		GetQuestion(ctx context.Context, id int) (Question, error)
		DeleteQuestion(ctx context.Context, id int) error
	}

	service struct {
		repo        Repository
		courses     CourseGetter
		invalidator core.ReportInvalidator
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, courses CourseGetter, invalidator core.ReportInvalidator) Service {
	if invalidator == nil {
		invalidator = core.NopInvalidator
	}
	return &service{repo: repo, courses: courses, invalidator: invalidator}
}

func (svc *service) checkCourse(ctx context.Context, courseID core.OptionalID) error {
	if !courseID.Valid {
		return nil
	}
	if _, err := svc.courses.GetByID(ctx, courseID.ID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "courseId", Error: errCourseNotFound})
		}
		return errors.Wrap(err, "getting course")
	}
	return nil
}

func (svc *service) invalidate(assessmentID int, courseIDs ...core.OptionalID) {
	if assessmentID != 0 {
		svc.invalidator.InvalidateAssessment(assessmentID)
	}
	for _, cid := range courseIDs {
		if cid.Valid {
			svc.invalidator.InvalidateCourse(cid.ID)
		}
	}
}

func (svc *service) Create(ctx context.Context, na NewAssessment) (Assessment, error) {
	if err := svc.checkCourse(ctx, na.CourseID); err != nil {
		return Assessment{}, err
	}

	now := NowFunc().UTC()
	a := Assessment{
		Title:     na.Title,
		CourseID:  na.CourseID,
		Questions: []Question{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if na.QuestionText != "" {
		a.Questions = append(a.Questions, Question{
			Text:      na.QuestionText,
			MaxPoints: DefaultMaxPoints,
			Position:  1,
			CreatedAt: now,
		})
	}

	a, err := svc.repo.CreateAssessment(ctx, a)
	if err != nil {
		return Assessment{}, err
	}
	svc.invalidate(0, a.CourseID)
	return a, nil
}

func (svc *service) Update(ctx context.Context, orig Assessment, ua UpdateAssessment) (Assessment, error) {
	if ua.CourseID != orig.CourseID {
		if err := svc.checkCourse(ctx, ua.CourseID); err != nil {
			return Assessment{}, err
		}
	}

	a, err := svc.repo.UpdateAssessment(ctx, Assessment{
		ID:        orig.ID,
		Title:     ua.Title,
		CourseID:  ua.CourseID,
		CreatedAt: orig.CreatedAt,
		UpdatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Assessment{}, err
	}
	svc.invalidate(a.ID, orig.CourseID, a.CourseID)
	return a, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Assessment, error) {
	return svc.repo.FilterAssessments(ctx, filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id int) (Assessment, error) {
	return svc.repo.GetAssessmentByID(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	a, err := svc.repo.GetAssessmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteAssessment(ctx, id); err != nil {
		return err
	}
	svc.invalidate(a.ID, a.CourseID)
	return nil
}

func (svc *service) AddQuestion(ctx context.Context, assessmentID int, nq NewQuestion) (Question, error) {
	a, err := svc.repo.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return Question{}, err
	}

	position := nq.Position
	if position == 0 {
		position = len(a.Questions) + 1
	}
	q, err := svc.repo.CreateQuestion(ctx, Question{
		AssessmentID: a.ID,
		Text:         nq.Text,
		MaxPoints:    nq.MaxPoints,
		Position:     position,
		CreatedAt:    NowFunc().UTC(),
	})
	if err != nil {
		return Question{}, err
	}
	svc.invalidate(a.ID, a.CourseID)
	return q, nil
}

func (svc *service) UpdateQuestion(ctx context.Context, orig Question, uq UpdateQuestion) (Question, error) {
	if uq.MaxPoints < orig.MaxPoints {
		highest, err := svc.repo.MaxQuestionScore(ctx, orig.ID)
		if err != nil {
			return Question{}, errors.Wrap(err, "getting highest score")
		}
		if highest > uq.MaxPoints {
			return Question{}, core.NewValidationError(nil, core.FieldError{
				Field: "maxPoints",
				Error: fmt.Sprintf("must be at least %v, the highest recorded score", highest),
			})
		}
	}

	q, err := svc.repo.UpdateQuestion(ctx, Question{
		ID:           orig.ID,
		AssessmentID: orig.AssessmentID,
		Text:         uq.Text,
		MaxPoints:    uq.MaxPoints,
		Position:     uq.Position,
		CreatedAt:    orig.CreatedAt,
	})
	if err != nil {
		return Question{}, err
	}
	svc.invalidateQuestion(ctx, q.AssessmentID)
	return q, nil
}

func (svc *service) GetQuestion(ctx context.Context, id int) (Question, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *service) DeleteQuestion(ctx context.Context, id int) error {
	q, err := svc.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	svc.invalidateQuestion(ctx, q.AssessmentID)
	return nil
}

func (svc *service) invalidateQuestion(ctx context.Context, assessmentID int) {
	var courseID core.OptionalID
	if a, err := svc.repo.GetAssessmentByID(ctx, assessmentID); err == nil {
		courseID = a.CourseID
	}
	svc.invalidate(assessmentID, courseID)
}
