package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
)

const scoreColumns = `id, student_id, question_id, value, created_at, updated_at`

type scoreRepository struct {
	db *sqlx.DB
}

var _ score.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *sqlx.DB) score.Repository {
	return &scoreRepository{db: db}
}

func utcScore(sc score.Score) score.Score {
	sc.CreatedAt = sc.CreatedAt.UTC()
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	return sc
}

func (repo *scoreRepository) UpsertScores(ctx context.Context, scores []score.Score) ([]score.Score, error) {
	saved := make([]score.Score, 0, len(scores))
	q := `INSERT INTO score (student_id, question_id, value, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, question_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING ` + scoreColumns

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, sc := range scores {
			var row score.Score
			err := tx.QueryRowxContext(
				ctx, q, sc.StudentID, sc.QuestionID, sc.Value, sc.CreatedAt, sc.UpdatedAt,
			).StructScan(&row)
			if err != nil {
				if constraint := violatedConstraint(err); constraint != "" {
					if strings.Contains(constraint, "student_id") {
						return user.ErrNotFound
					}
					return assessment.ErrQuestionNotFound
				}
				return errors.Wrap(err, "upserting score")
			}
			saved = append(saved, utcScore(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *scoreRepository) DeleteScore(ctx context.Context, studentID, questionID int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM score WHERE student_id = $1 AND question_id = $2`, studentID, questionID)
	if err != nil {
		return errors.Wrap(err, "deleting score")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting score")
	} else if n == 0 {
		return score.ErrNotFound
	}
	return nil
}

func (repo *scoreRepository) ScoresByAssessment(ctx context.Context, assessmentID int) ([]score.Score, error) {
	scores := make([]score.Score, 0)
	q := `SELECT s.id, s.student_id, s.question_id, s.value, s.created_at, s.updated_at
		FROM score s JOIN question q ON q.id = s.question_id
		WHERE q.assessment_id = $1
		ORDER BY s.student_id ASC, s.question_id ASC`
	if err := repo.db.SelectContext(ctx, &scores, q, assessmentID); err != nil {
		return nil, errors.Wrap(err, "selecting scores")
	}
	for i := range scores {
		scores[i] = utcScore(scores[i])
	}
	return scores, nil
}
