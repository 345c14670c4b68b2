package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const userColumns = `id, name, email, roles, created_at, updated_at`

type userRow struct {
	ID        int            `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Roles     pq.StringArray `db:"roles"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row userRow) toUser() user.User {
	roles := make([]string, len(row.Roles))
	copy(roles, row.Roles)
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Roles:     roles,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toUser()
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	var found bool
	q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1 AND NOT (id = ANY($2)))`
	if err := repo.db.QueryRowxContext(ctx, q, email, int64s(excludedIDs)).Scan(&found); err != nil {
		return errors.Wrap(err, "checking email")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (name, email, roles, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q, usr.Name, usr.Email, pq.StringArray(usr.Roles), usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		if isViolation(err, codeUniqueViolation) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	q := `UPDATE "user" SET name = $1, email = $2, roles = $3, updated_at = $4 WHERE id = $5 RETURNING ` + userColumns
	err := repo.db.QueryRowxContext(
		ctx, q, usr.Name, usr.Email, pq.StringArray(usr.Roles), usr.UpdatedAt, usr.ID,
	).StructScan(&row)
	switch {
	case err == sql.ErrNoRows:
		return user.User{}, user.ErrNotFound
	case isViolation(err, codeUniqueViolation):
		return user.User{}, user.ErrEmailExists
	case err != nil:
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) getUser(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE `+cond, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = $1", email)
}

var userOrderColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var w where
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		w.add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	if len(filter.Roles) > 0 {
		prefixes := make(pq.StringArray, len(filter.Roles))
		for i, r := range filter.Roles {
			prefixes[i] = likeEscaper.Replace(r) + "%"
		}
		w.add("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY(?))", prefixes)
	}

	rows := make([]userRow, 0)
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + orderBy(orderings, userOrderColumns)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		if strings.HasPrefix(violatedConstraint(err), "course_owner_id") {
			return user.ErrOwnsCourses
		}
		return errors.Wrap(err, "deleting user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting user")
	} else if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
