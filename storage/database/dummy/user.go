package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		usr := *u
		usr.Roles = copyStrings(u.Roles)
		users = append(users, usr)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	repo.db.userPK++
	usr.ID = repo.db.userPK
	usr.Roles = copyStrings(usr.Roles)
	stored := usr
	repo.db.users[usr.ID] = &stored
	return usr, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.Roles = copyStrings(usr.Roles)
	orig.UpdatedAt = usr.UpdatedAt

	updated := *orig
	updated.Roles = copyStrings(orig.Roles)
	return updated, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		found := *usr
		found.Roles = copyStrings(usr.Roles)
		return found, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

var userOrderings = map[string]func(a, b user.User) int{
	"id":        func(a, b user.User) int { return a.ID - b.ID },
	"name":      func(a, b user.User) int { return strings.Compare(a.Name, b.Name) },
	"email":     func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"createdAt": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()

	// users with search keyword matching any Name or Email ?
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		filtered := make([]user.User, 0)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Email), search) ||
				strings.Contains(strings.ToLower(u.Name), search) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 {
		filtered := make([]user.User, 0)
		for _, u := range users {
			for _, r := range filter.Roles {
				if u.RoleStartsWith(r) {
					filtered = append(filtered, u)
					break
				}
			}
		}
		users = filtered
	}

	sortBy(users, userOrderings, orderings, func(u user.User) int { return u.ID })
	return users, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	for _, c := range repo.db.courses {
		if c.OwnerID == id {
			return user.ErrOwnsCourses
		}
	}

	for key := range repo.db.enrollments {
		if key.studentID == id {
			delete(repo.db.enrollments, key)
		}
	}
	for key := range repo.db.scores {
		if key.studentID == id {
			delete(repo.db.scores, key)
		}
	}
	delete(repo.db.users, id)
	return nil
}

func isExcluded(id int, excludedIDs []int) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}

// sortBy orders items following orderings (unknown fields are ignored), then by id.
func sortBy[T any](items []T, fields map[string]func(a, b T) int, orderings []core.DBOrdering, id func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(items[i], items[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return id(items[i]) < id(items[j])
	})
}
