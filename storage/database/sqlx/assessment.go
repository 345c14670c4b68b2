package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
)

const (
	assessmentColumns = `id, title, course_id, created_at, updated_at`
	questionColumns   = `id, assessment_id, text, max_points, position, created_at`
)

type assessmentRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	CourseID  *int      `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row assessmentRow) toAssessment(questions []assessment.Question) assessment.Assessment {
	if questions == nil {
		questions = make([]assessment.Question, 0)
	}
	return assessment.Assessment{
		ID:        row.ID,
		Title:     row.Title,
		CourseID:  core.OptionalIDFromPtr(row.CourseID),
		Questions: questions,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func sortQuestions(questions []assessment.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
}

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

// withQuestions loads the questions of all the given assessments in one query.
func (repo *assessmentRepository) withQuestions(ctx context.Context, rows []assessmentRow) ([]assessment.Assessment, error) {
	if len(rows) == 0 {
		return make([]assessment.Assessment, 0), nil
	}

	ids := make([]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	questions := make([]assessment.Question, 0)
	q := `SELECT ` + questionColumns + ` FROM question WHERE assessment_id = ANY($1) ORDER BY position ASC, id ASC`
	if err := repo.db.SelectContext(ctx, &questions, q, int64s(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	byAssessment := make(map[int][]assessment.Question, len(rows))
	for _, qn := range questions {
		qn.CreatedAt = qn.CreatedAt.UTC()
		byAssessment[qn.AssessmentID] = append(byAssessment[qn.AssessmentID], qn)
	}
	assessments := make([]assessment.Assessment, len(rows))
	for i, row := range rows {
		assessments[i] = row.toAssessment(byAssessment[row.ID])
	}
	return assessments, nil
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO assessment (title, course_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
		if err := tx.QueryRowxContext(ctx, q, a.Title, a.CourseID.Ptr(), a.CreatedAt, a.UpdatedAt).Scan(&a.ID); err != nil {
			if isViolation(err, codeForeignKeyViolation) {
				return course.ErrNotFound
			}
			return errors.Wrap(err, "inserting assessment")
		}

		questions := make([]assessment.Question, len(a.Questions))
		for i, qn := range a.Questions {
			qn.AssessmentID = a.ID
			if err := insertQuestion(ctx, tx, &qn); err != nil {
				return err
			}
			questions[i] = qn
		}
		sortQuestions(questions)
		a.Questions = questions
		return nil
	})
	if err != nil {
		return assessment.Assessment{}, err
	}
	return a, nil
}

func insertQuestion(ctx context.Context, db sqlx.QueryerContext, qn *assessment.Question) error {
	q := `INSERT INTO question (assessment_id, text, max_points, position, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := db.QueryRowxContext(ctx, q, qn.AssessmentID, qn.Text, qn.MaxPoints, qn.Position, qn.CreatedAt).Scan(&qn.ID)
	if err != nil {
		if isViolation(err, codeForeignKeyViolation) {
			return assessment.ErrNotFound
		}
		return errors.Wrap(err, "inserting question")
	}
	return nil
}

func (repo *assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	var row assessmentRow
	q := `UPDATE assessment SET title = $1, course_id = $2, updated_at = $3 WHERE id = $4 RETURNING ` + assessmentColumns
	err := repo.db.QueryRowxContext(ctx, q, a.Title, a.CourseID.Ptr(), a.UpdatedAt, a.ID).StructScan(&row)
	switch {
	case err == sql.ErrNoRows:
		return assessment.Assessment{}, assessment.ErrNotFound
	case isViolation(err, codeForeignKeyViolation):
		return assessment.Assessment{}, course.ErrNotFound
	case err != nil:
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}

	assessments, err := repo.withQuestions(ctx, []assessmentRow{row})
	if err != nil {
		return assessment.Assessment{}, err
	}
	return assessments[0], nil
}

func (repo *assessmentRepository) GetAssessmentByID(ctx context.Context, id int) (assessment.Assessment, error) {
	var row assessmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+assessmentColumns+` FROM assessment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return assessment.Assessment{}, assessment.ErrNotFound
		}
		return assessment.Assessment{}, errors.Wrap(err, "selecting assessment")
	}

	assessments, err := repo.withQuestions(ctx, []assessmentRow{row})
	if err != nil {
		return assessment.Assessment{}, err
	}
	return assessments[0], nil
}

var assessmentOrderColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"createdAt": "created_at",
}

func (repo *assessmentRepository) FilterAssessments(
	ctx context.Context,
	filter assessment.QueryFilter,
	orderings ...core.DBOrdering,
) ([]assessment.Assessment, error) {
	var w where
	if filter.CourseID.Valid {
		w.add("course_id = ?", filter.CourseID.ID)
	}
	if filter.Search != "" {
		w.add("title ILIKE ?", containsPattern(filter.Search))
	}

	rows := make([]assessmentRow, 0)
	q := `SELECT ` + assessmentColumns + ` FROM assessment` + w.String() + orderBy(orderings, assessmentOrderColumns)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering assessments")
	}
	return repo.withQuestions(ctx, rows)
}

func (repo *assessmentRepository) DeleteAssessment(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, `DELETE FROM assessment WHERE id = $1`, id, assessment.ErrNotFound)
}

func (repo *assessmentRepository) CreateQuestion(ctx context.Context, qn assessment.Question) (assessment.Question, error) {
	if err := insertQuestion(ctx, repo.db, &qn); err != nil {
		return assessment.Question{}, err
	}
	return qn, nil
}

func (repo *assessmentRepository) UpdateQuestion(ctx context.Context, qn assessment.Question) (assessment.Question, error) {
	var updated assessment.Question
	q := `UPDATE question SET text = $1, max_points = $2, position = $3 WHERE id = $4 RETURNING ` + questionColumns
	if err := repo.db.QueryRowxContext(ctx, q, qn.Text, qn.MaxPoints, qn.Position, qn.ID).StructScan(&updated); err != nil {
		if err == sql.ErrNoRows {
			return assessment.Question{}, assessment.ErrQuestionNotFound
		}
		return assessment.Question{}, errors.Wrap(err, "updating question")
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return updated, nil
}

func (repo *assessmentRepository) GetQuestionByID(ctx context.Context, id int) (assessment.Question, error) {
	var qn assessment.Question
	if err := repo.db.GetContext(ctx, &qn, `SELECT `+questionColumns+` FROM question WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return assessment.Question{}, assessment.ErrQuestionNotFound
		}
		return assessment.Question{}, errors.Wrap(err, "selecting question")
	}
	qn.CreatedAt = qn.CreatedAt.UTC()
	return qn, nil
}

func (repo *assessmentRepository) DeleteQuestion(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, `DELETE FROM question WHERE id = $1`, id, assessment.ErrQuestionNotFound)
}

func (repo *assessmentRepository) MaxQuestionScore(ctx context.Context, questionID int) (float64, error) {
	var highest float64
	q := `SELECT COALESCE(MAX(value), 0) FROM score WHERE question_id = $1`
	if err := repo.db.GetContext(ctx, &highest, q, questionID); err != nil {
		return 0, errors.Wrap(err, "selecting highest score")
	}
	return highest, nil
}

func (repo *assessmentRepository) deleteByID(ctx context.Context, query string, id int, errNotFound error) error {
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "deleting")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting")
	} else if n == 0 {
		return errNotFound
	}
	return nil
}
