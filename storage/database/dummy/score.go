package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
)

type scoreRepository struct {
	db *DB
}

var _ score.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *DB) score.Repository {
	return &scoreRepository{db: db}
}

func (repo *scoreRepository) UpsertScores(_ context.Context, scores []score.Score) ([]score.Score, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// all or nothing
	for _, sc := range scores {
		if _, ok := repo.db.users[sc.StudentID]; !ok {
			return nil, user.ErrNotFound
		}
		if _, ok := repo.db.questions[sc.QuestionID]; !ok {
			return nil, assessment.ErrQuestionNotFound
		}
	}

	saved := make([]score.Score, 0, len(scores))
	for _, sc := range scores {
		key := scoreKey{studentID: sc.StudentID, questionID: sc.QuestionID}
		if existing, ok := repo.db.scores[key]; ok {
			existing.Value = sc.Value
			existing.UpdatedAt = sc.UpdatedAt
			saved = append(saved, *existing)
			continue
		}
		repo.db.scorePK++
		sc.ID = repo.db.scorePK
		stored := sc
		repo.db.scores[key] = &stored
		saved = append(saved, sc)
	}
	return saved, nil
}

func (repo *scoreRepository) DeleteScore(_ context.Context, studentID, questionID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := scoreKey{studentID: studentID, questionID: questionID}
	if _, ok := repo.db.scores[key]; !ok {
		return score.ErrNotFound
	}
	delete(repo.db.scores, key)
	return nil
}

func (repo *scoreRepository) ScoresByAssessment(_ context.Context, assessmentID int) ([]score.Score, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scores := make([]score.Score, 0)
	for _, sc := range repo.db.scores {
		if q, ok := repo.db.questions[sc.QuestionID]; ok && q.AssessmentID == assessmentID {
			scores = append(scores, *sc)
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].StudentID != scores[j].StudentID {
			return scores[i].StudentID < scores[j].StudentID
		}
		return scores[i].QuestionID < scores[j].QuestionID
	})
	return scores, nil
}
