package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrOwnsCourses = core.NewConflictError("this user owns courses and cannot be deleted")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		// QueryFilter.Roles keeps users having a role starting with any of the given roles.
		FilterUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		// DeleteUser removes the user along with their enrollments and scores.
		// Returns ErrOwnsCourses if the user still owns courses.
		DeleteUser(ctx context.Context, id int) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, excludedIDs ...int) error
		Create(ctx context.Context, nu NewUser) (User, error)
		// Save creates the user or, if one with the same email exists, updates their name and roles.
		Save(ctx context.Context, nu NewUser) (usr User, created bool, err error)
		Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo        Repository
		invalidator core.ReportInvalidator
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, invalidator core.ReportInvalidator) Service {
	if invalidator == nil {
		invalidator = core.NopInvalidator
	}
	return &service{repo: repo, invalidator: invalidator}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Save(ctx context.Context, nu NewUser) (User, bool, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, nu.Email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, false, err
		}
		usr, err = svc.Create(ctx, nu)
		return usr, err == nil, err
	}

	usr.Name = nu.Name
	if nu.Roles != nil {
		usr.Roles = nu.Roles
	}
	usr.UpdatedAt = NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, false, err
	}
	// student names are part of every report row
	svc.invalidator.InvalidateAll()
	return usr, false, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Delete(ctx context.Context, id int) error {
	if err := svc.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	svc.invalidator.InvalidateAll()
	return nil
}
