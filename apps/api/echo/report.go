package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
)

type reportApi struct {
	courses     course.Service
	assessments assessment.Service
	reports     *report.Engine
}

// reportScreen is everything the report screen renders.
type reportScreen struct {
	CourseID    core.OptionalID          `json:"courseId"`
	Assessments []assessment.Assessment  `json:"assessments"`
	Report      *report.AssessmentReport `json:"report"`
}

func registerReportAPI(g *echo.Group, courses course.Service, assessments assessment.Service, reports *report.Engine) {
	api := reportApi{courses: courses, assessments: assessments, reports: reports}
	g.GET("/reports", api.screen)
}

func (api *reportApi) screen(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	courseID, err := optionalIDQuery(ctx, "courseId")
	if err != nil {
		return err
	}
	assessmentID, err := optionalIDQuery(ctx, "assessmentId")
	if err != nil {
		return err
	}
	if courseID.Valid {
		if _, err = api.courses.GetByID(reqCtx, courseID.ID); err != nil {
			return errors.Wrap(err, "getting course")
		}
	}

	// the list is fetched once and reused to check the selected assessment
	assessments, err := api.assessments.Query(reqCtx, assessment.QueryFilter{CourseID: courseID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}

	res := reportScreen{CourseID: courseID, Assessments: assessments}
	if assessmentID.Valid {
		found := false
		for _, a := range assessments {
			if a.ID == assessmentID.ID {
				found = true
				break
			}
		}
		if !found {
			return assessment.ErrNotFound
		}
		rep, err := api.reports.AssessmentReport(reqCtx, assessmentID.ID)
		if err != nil {
			return errors.Wrap(err, "getting assessment report")
		}
		res.Report = &rep
	}
	return ctx.JSON(http.StatusOK, res)
}
