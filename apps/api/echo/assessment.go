package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
)

type assessmentApi struct {
	svc      assessment.Service
	scores   score.Service
	reports  *report.Engine
	mailer   *report.Mailer
	validate *validator.Validate
}

func registerAssessmentAPI(
	g *echo.Group,
	svc assessment.Service,
	scores score.Service,
	reports *report.Engine,
	mailer *report.Mailer,
	validate *validator.Validate,
) {
	api := assessmentApi{svc: svc, scores: scores, reports: reports, mailer: mailer, validate: validate}

	ag := g.Group("/assessments")
	ag.GET("", api.query)
	ag.POST("", api.create)

	// detail endpoints
	dg := ag.Group("/:id", objectMiddleware(svc.GetByID))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/questions", api.addQuestion)
	dg.GET("/scores", api.listScores)
	dg.PUT("/scores", api.submitScores)
	dg.GET("/report", api.report)
	dg.POST("/report/mail", api.mailReport)

	qg := g.Group("/questions/:id", objectMiddleware(svc.GetQuestion))
	qg.PUT("", api.updateQuestion)
	qg.DELETE("", api.destroyQuestion)

	g.DELETE("/scores", api.destroyScore)
}

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) query(ctx echo.Context) error {
	filter := new(assessment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.Assessment{})
	}
	filter.Clean()
	courseID, err := optionalIDQuery(ctx, "courseId")
	if err != nil {
		return err
	}
	filter.CourseID = courseID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	assessments, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}

	// an omitted courseId keeps the current course
	data := assessment.UpdateAssessment{CourseID: a.CourseID}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessment")
	}
	data.Validate(a)

	a, err = api.svc.Update(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) addQuestion(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}

	var data assessment.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), a.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *assessmentApi) updateQuestion(ctx echo.Context) error {
	q, err := contextObject[assessment.Question](ctx)
	if err != nil {
		return err
	}

	var data assessment.UpdateQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err = data.Validate(q, api.validate); err != nil {
		return err
	}

	q, err = api.svc.UpdateQuestion(ctx.Request().Context(), q, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *assessmentApi) destroyQuestion(ctx echo.Context) error {
	q, err := contextObject[assessment.Question](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteQuestion(ctx.Request().Context(), q.ID); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) listScores(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}
	scores, err := api.scores.ListByAssessment(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "listing scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *assessmentApi) submitScores(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}

	var batch []score.SubmitScore
	if err = ctx.Bind(&batch); err != nil {
		return errors.Wrap(err, "binding to []SubmitScore")
	}

	scores, err := api.scores.Submit(ctx.Request().Context(), a.ID, batch)
	if err != nil {
		return errors.Wrap(err, "submitting scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *assessmentApi) destroyScore(ctx echo.Context) error {
	var data score.DeleteScore
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to DeleteScore")
	}
	if err := api.scores.Delete(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "deleting score")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) report(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}
	rep, err := api.reports.AssessmentReport(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "getting assessment report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *assessmentApi) mailReport(ctx echo.Context) error {
	a, err := contextObject[assessment.Assessment](ctx)
	if err != nil {
		return err
	}
	to, err := api.mailer.MailAssessmentReport(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "mailing assessment report")
	}
	return ctx.JSON(http.StatusAccepted, echo.Map{"sentTo": to.Address})
}
