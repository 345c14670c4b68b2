package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgError(err error) *pq.Error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr
	}
	return nil
}

func isViolation(err error, code string) bool {
	pqErr := pgError(err)
	return pqErr != nil && string(pqErr.Code) == code
}

// violatedConstraint returns the name of the constraint a foreign key violation failed on.
func violatedConstraint(err error) string {
	if pqErr := pgError(err); pqErr != nil && string(pqErr.Code) == codeForeignKeyViolation {
		return pqErr.Constraint
	}
	return ""
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func int64s(ids []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// where accumulates AND-ed conditions along with their positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends a condition; each `?` in cond is replaced by the next positional placeholder.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(orderings []core.DBOrdering, columns map[string]string) string {
	clause := core.OrderBy(orderings, columns, "")
	if clause == "" {
		return " ORDER BY id ASC"
	}
	return " ORDER BY " + clause + ", id ASC"
}
