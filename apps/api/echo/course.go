package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/user"
)

type courseApi struct {
	svc         course.Service
	assessments assessment.Service
	reports     *report.Engine
	validate    *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	svc course.Service,
	assessments assessment.Service,
	reports *report.Engine,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, assessments: assessments, reports: reports, validate: validate}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id", objectMiddleware(svc.GetByID))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.listStudents)
	dg.POST("/students", api.enroll)
	dg.DELETE("/students/:studentId", api.unenroll)
	dg.GET("/assessments", api.listAssessments)
	dg.GET("/report", api.report)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(c, api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) listStudents(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.ListStudents(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}

	var data course.EnrollStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollStudent")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), c.ID, data.StudentID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	studentID, err := idParam(ctx, "studentId")
	if err != nil {
		return err
	}
	if err = api.svc.Unenroll(ctx.Request().Context(), c.ID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) listAssessments(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := assessment.QueryFilter{Search: core.CleanString(ctx.QueryParam("search")), CourseID: core.NewOptionalID(c.ID)}
	assessments, err := api.assessments.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying course assessments")
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *courseApi) report(ctx echo.Context) error {
	c, err := contextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	rep, err := api.reports.CourseReport(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "getting course report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
