package score

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = core.NewNotFoundError("score not found")
	errEmptyBatch      = "at least one score is required"
	errForeignQuestion = "question does not belong to this assessment"
	errStudentNotFound = "student not found"
)

type (
	Repository interface {
		// UpsertScores saves the whole batch in one transaction; existing (student, question) pairs are overwritten.
		UpsertScores(ctx context.Context, scores []Score) ([]Score, error)
		DeleteScore(ctx context.Context, studentID, questionID int) error
		// ScoresByAssessment lists the scores of all the assessment's questions, ordered by student then question.
		ScoresByAssessment(ctx context.Context, assessmentID int) ([]Score, error)
	}

	AssessmentGetter interface {
		GetByID(ctx context.Context, id int) (assessment.Assessment, error)
		GetQuestion(ctx context.Context, id int) (assessment.Question, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service interface {
		// Submit validates the whole batch before writing anything.
		Submit(ctx context.Context, assessmentID int, batch []SubmitScore) ([]Score, error)
		Delete(ctx context.Context, ds DeleteScore) error
		ListByAssessment(ctx context.Context, assessmentID int) ([]Score, error)
	}

	service struct {
		repo        Repository
		assessments AssessmentGetter
		users       UserGetter
		validate    *validator.Validate
		translator  ut.Translator
		invalidator core.ReportInvalidator
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	assessments AssessmentGetter,
	users UserGetter,
	validate *validator.Validate,
	translator ut.Translator,
	invalidator core.ReportInvalidator,
) Service {
	if invalidator == nil {
		invalidator = core.NopInvalidator
	}
	return &service{
		repo:        repo,
		assessments: assessments,
		users:       users,
		validate:    validate,
		translator:  translator,
		invalidator: invalidator,
	}
}

func (svc *service) Submit(ctx context.Context, assessmentID int, batch []SubmitScore) ([]Score, error) {
	a, err := svc.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "scores", Error: errEmptyBatch})
	}

	var fldErrs []core.FieldError
	fieldErr := func(i int, field, msg string) {
		fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("scores[%d].%s", i, field), Error: msg})
	}

	now := NowFunc().UTC()
	students := make(map[int]bool) // {id: exists}
	pending := make(map[[2]int]int) // {(student, question): index in scores}
	scores := make([]Score, 0, len(batch))

	for i, item := range batch {
		if err := svc.validate.Struct(item); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return nil, errors.Wrap(err, "validating score")
			}
			for _, vErr := range vErrs {
				fieldErr(i, vErr.Field(), vErr.Translate(svc.translator))
			}
			continue
		}

		q, ok := a.QuestionByID(item.QuestionID)
		if !ok {
			fieldErr(i, "questionId", errForeignQuestion)
			continue
		}
		if *item.Value > q.MaxPoints {
			fieldErr(i, "value", fmt.Sprintf("must be %v or less", q.MaxPoints))
			continue
		}

		exists, checked := students[item.StudentID]
		if !checked {
			_, err := svc.users.GetByID(ctx, item.StudentID)
			switch {
			case err == nil:
				exists = true
			case errors.Cause(err) == user.ErrNotFound:
				exists = false
			default:
				return nil, errors.Wrap(err, "getting student")
			}
			students[item.StudentID] = exists
		}
		if !exists {
			fieldErr(i, "studentId", errStudentNotFound)
			continue
		}

		sc := Score{
			StudentID:  item.StudentID,
			QuestionID: item.QuestionID,
			Value:      *item.Value,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		// last answer wins within a batch
		key := [2]int{sc.StudentID, sc.QuestionID}
		if idx, dup := pending[key]; dup {
			scores[idx] = sc
			continue
		}
		pending[key] = len(scores)
		scores = append(scores, sc)
	}

	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(nil, fldErrs...)
	}

	saved, err := svc.repo.UpsertScores(ctx, scores)
	if err != nil {
		return nil, errors.Wrap(err, "saving scores")
	}
	svc.invalidate(a)
	return saved, nil
}

func (svc *service) Delete(ctx context.Context, ds DeleteScore) error {
	if err := svc.validate.Struct(ds); err != nil {
		return err
	}
	q, err := svc.assessments.GetQuestion(ctx, ds.QuestionID)
	if err != nil {
		if errors.Cause(err) == assessment.ErrQuestionNotFound {
			return ErrNotFound
		}
		return err
	}
	if err := svc.repo.DeleteScore(ctx, ds.StudentID, ds.QuestionID); err != nil {
		return err
	}

	if a, err := svc.assessments.GetByID(ctx, q.AssessmentID); err == nil {
		svc.invalidate(a)
	} else {
		svc.invalidator.InvalidateAssessment(q.AssessmentID)
	}
	return nil
}

func (svc *service) ListByAssessment(ctx context.Context, assessmentID int) ([]Score, error) {
	if _, err := svc.assessments.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	return svc.repo.ScoresByAssessment(ctx, assessmentID)
}

func (svc *service) invalidate(a assessment.Assessment) {
	svc.invalidator.InvalidateAssessment(a.ID)
	if a.CourseID.Valid {
		svc.invalidator.InvalidateCourse(a.CourseID.ID)
	}
}
