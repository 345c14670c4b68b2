package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-field` ("-" for descending order).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// idParam reads a numeric path param; anything else does not match a resource.
func idParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

// optionalIDQuery reads a query param holding an id; absent or empty means no id.
func optionalIDQuery(ctx echo.Context, name string) (core.OptionalID, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" || val == "null" {
		return core.OptionalID{}, nil
	}
	id, err := strconv.Atoi(val)
	if err != nil || id <= 0 {
		return core.OptionalID{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a valid id"})
	}
	return core.NewOptionalID(id), nil
}
