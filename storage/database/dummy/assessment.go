package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) withQuestionsLocked(a assessment.Assessment) assessment.Assessment {
	a.Questions = repo.db.questionsOfLocked(a.ID)
	return a
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.CourseID.Valid {
		if _, ok := repo.db.courses[a.CourseID.ID]; !ok {
			return assessment.Assessment{}, course.ErrNotFound
		}
	}

	repo.db.assessmentPK++
	a.ID = repo.db.assessmentPK
	stored := a
	stored.Questions = nil
	repo.db.assessments[a.ID] = &stored

	for _, q := range a.Questions {
		repo.db.questionPK++
		q.ID = repo.db.questionPK
		q.AssessmentID = a.ID
		storedQ := q
		repo.db.questions[q.ID] = &storedQ
	}
	return repo.withQuestionsLocked(stored), nil
}

func (repo *assessmentRepository) UpdateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assessments[a.ID]
	if !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	if a.CourseID.Valid {
		if _, ok := repo.db.courses[a.CourseID.ID]; !ok {
			return assessment.Assessment{}, course.ErrNotFound
		}
	}
	orig.Title = a.Title
	orig.CourseID = a.CourseID
	orig.UpdatedAt = a.UpdatedAt
	return repo.withQuestionsLocked(*orig), nil
}

func (repo *assessmentRepository) GetAssessmentByID(_ context.Context, id int) (assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return repo.withQuestionsLocked(*a), nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

var assessmentOrderings = map[string]func(a, b assessment.Assessment) int{
	"id":        func(a, b assessment.Assessment) int { return a.ID - b.ID },
	"title":     func(a, b assessment.Assessment) int { return strings.Compare(a.Title, b.Title) },
	"createdAt": func(a, b assessment.Assessment) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *assessmentRepository) FilterAssessments(
	_ context.Context,
	filter assessment.QueryFilter,
	orderings ...core.DBOrdering,
) ([]assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	assessments := make([]assessment.Assessment, 0)
	for _, a := range repo.db.assessments {
		if filter.CourseID.Valid && !a.CourseID.Is(filter.CourseID.ID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Title), search) {
			continue
		}
		assessments = append(assessments, repo.withQuestionsLocked(*a))
	}

	sortBy(assessments, assessmentOrderings, orderings, func(a assessment.Assessment) int { return a.ID })
	return assessments, nil
}

func (repo *assessmentRepository) DeleteAssessment(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[id]; !ok {
		return assessment.ErrNotFound
	}
	for _, q := range repo.db.questionsOfLocked(id) {
		repo.db.deleteQuestionLocked(q.ID)
	}
	delete(repo.db.assessments, id)
	return nil
}

func (repo *assessmentRepository) CreateQuestion(_ context.Context, q assessment.Question) (assessment.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[q.AssessmentID]; !ok {
		return assessment.Question{}, assessment.ErrNotFound
	}
	repo.db.questionPK++
	q.ID = repo.db.questionPK
	stored := q
	repo.db.questions[q.ID] = &stored
	return q, nil
}

func (repo *assessmentRepository) UpdateQuestion(_ context.Context, q assessment.Question) (assessment.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.questions[q.ID]
	if !ok {
		return assessment.Question{}, assessment.ErrQuestionNotFound
	}
	orig.Text = q.Text
	orig.MaxPoints = q.MaxPoints
	orig.Position = q.Position
	return *orig, nil
}

func (repo *assessmentRepository) GetQuestionByID(_ context.Context, id int) (assessment.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return assessment.Question{}, assessment.ErrQuestionNotFound
}

func (repo *assessmentRepository) DeleteQuestion(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return assessment.ErrQuestionNotFound
	}
	repo.db.deleteQuestionLocked(id)
	return nil
}

func (repo *assessmentRepository) MaxQuestionScore(_ context.Context, questionID int) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var highest float64
	for key, sc := range repo.db.scores {
		if key.questionID == questionID && sc.Value > highest {
			highest = sc.Value
		}
	}
	return highest, nil
}
