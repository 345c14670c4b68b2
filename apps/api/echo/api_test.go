package echoapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/testutil"
)

func TestServer_static(t *testing.T) {
	app := setup(t)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
		wantMsg  string
	}{
		{name: "root", method: http.MethodGet, path: "/", wantCode: http.StatusOK, wantBody: indexHTML},
		{name: "client-side route", method: http.MethodGet, path: "/courses/5/report", wantCode: http.StatusOK, wantBody: indexHTML},
		{name: "asset", method: http.MethodGet, path: "/static/app.js", wantCode: http.StatusOK, wantBody: "console.log('darasa')"},
		{name: "HEAD client-side route", method: http.MethodHead, path: "/assessments", wantCode: http.StatusOK},
		{name: "missing asset", method: http.MethodGet, path: "/static/logo.png", wantCode: http.StatusNotFound, wantMsg: "Not found"},
		{name: "HEAD missing asset", method: http.MethodHead, path: "/favicon.ico", wantCode: http.StatusNotFound},
		{name: "other method", method: http.MethodPost, path: "/courses", wantCode: http.StatusNotFound, wantMsg: "Not Found - /courses"},
		{name: "unknown api", method: http.MethodGet, path: "/api/unknown", wantCode: http.StatusNotFound, wantMsg: "Not Found - /api/unknown"},
		{name: "api root", method: http.MethodGet, path: "/api", wantCode: http.StatusNotFound, wantMsg: "Not Found - /api"},
		{name: "non-numeric id", method: http.MethodGet, path: "/api/courses/abc", wantCode: http.StatusNotFound, wantMsg: "Not Found - /api/courses/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantMsg != "" {
				res := decodeErr(t, rec)
				assert.Equal(t, tt.wantCode, res.Error.StatusCode)
				assert.Equal(t, tt.wantMsg, res.Message)
				assert.Empty(t, res.Stack)
			}
			if tt.method == http.MethodHead && tt.wantCode == http.StatusNotFound {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestServer_healthAndMetrics(t *testing.T) {
	app := setup(t)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`{"status": "ok", "build": "test"}`),
	}, app.do(http.MethodGet, "/health"))

	rec := app.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `darasa_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, "darasa_report_dirty 0")
}

func Test_userApi(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin@test.cd", []string{user.RoleAdmin})
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero@test.cd", []string{user.RoleStudent})
	testutil.CreateCourse(t, app.courseRepo, "Maths", teacher)

	tests := []httpTest{
		{name: "list", method: http.MethodGet, path: "/api/users", wantCode: http.StatusOK, wantData: marshalList(t, admin, teacher, student)},
		{name: "list ordered", method: http.MethodGet, path: "/api/users?ordering=-name", wantCode: http.StatusOK, wantData: marshalList(t, teacher, student, admin)},
		{name: "search", method: http.MethodGet, path: "/api/users?search=HERO", wantCode: http.StatusOK, wantData: marshalList(t, student)},
		{name: "search (unknown)", method: http.MethodGet, path: "/api/users?search=lol", wantCode: http.StatusOK, wantData: marshalList(t)},
		{
			name: "by role", method: http.MethodGet, path: "/api/users?" + url.Values{"role": {user.RoleTeacher, user.RoleAdmin}}.Encode(),
			wantCode: http.StatusOK, wantData: marshalList(t, admin, teacher),
		},
		{name: "roles", method: http.MethodGet, path: "/api/users/roles", wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
		{name: "retrieve", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d", student.ID), wantCode: http.StatusOK, wantData: marshalObj(t, student)},
		{name: "retrieve (unknown)", method: http.MethodGet, path: "/api/users/999", wantCode: http.StatusNotFound},
		{name: "delete course owner", method: http.MethodDelete, path: fmt.Sprintf("/api/users/%d", teacher.ID), wantCode: http.StatusConflict},
		{name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/api/users/%d", admin.ID), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path))
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Hero", "hero@test.cd", []string{user.RoleStudent})

	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantFields map[string]string
	}{
		{
			name: "invalid", body: `{"name": "  ", "email": "lol", "roles": ["wizard:"]}`, wantCode: http.StatusBadRequest,
			wantFields: map[string]string{
				"name":  "this field cannot be blank",
				"email": "email must be a valid email address",
				"roles": "invalid roles",
			},
		},
		{
			name: "duplicate email", body: `{"name": "Hero 2", "email": " HERO@test.cd "}`, wantCode: http.StatusBadRequest,
			wantFields: map[string]string{"email": user.ErrEmailExists.Error()},
		},
		{name: "valid", body: `{"name": " Zero ", "email": "Zero@Test.cd", "roles": ["student:"]}`, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/users", []byte(tt.body))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantFields != nil {
				res := decodeErr(t, rec)
				assert.Equal(t, tt.wantFields, res.Error.Fields)
				return
			}

			var usr user.User
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
			assert.Equal(t, "Zero", usr.Name)
			assert.Equal(t, "zero@test.cd", usr.Email)
			assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
		})
	}
}

func Test_courseApi(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada@test.cd", []string{user.RoleStudent})
	ben := testutil.CreateUser(t, app.usrRepo, "Ben", "ben@test.cd", []string{user.RoleStudent})

	// create
	rec := app.do(http.MethodPost, "/api/courses", []byte(fmt.Sprintf(`{"name": "Maths", "ownerId": %d}`, ada.ID)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"ownerId": "owner must be a teacher or an admin"}, decodeErr(t, rec).Error.Fields)

	rec = app.do(http.MethodPost, "/api/courses", []byte(fmt.Sprintf(`{"name": " Maths ", "ownerId": %d}`, teacher.ID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Maths", c.Name)
	assert.Equal(t, teacher.ID, c.OwnerID)
	detail := fmt.Sprintf("/api/courses/%d", c.ID)

	// update
	rec = app.do(http.MethodPut, detail, []byte(`{"name": "Algebra"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Algebra", c.Name)
	assert.Equal(t, teacher.ID, c.OwnerID)

	// enrollments
	rec = app.do(http.MethodPost, detail+"/students", []byte(fmt.Sprintf(`{"studentId": %d}`, teacher.ID)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"studentId": "user is not a student"}, decodeErr(t, rec).Error.Fields)

	rec = app.do(http.MethodPost, detail+"/students", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"studentId": "this field is required"}, decodeErr(t, rec).Error.Fields)

	for _, s := range []user.User{ben, ada, ada} {
		rec = app.do(http.MethodPost, detail+"/students", []byte(fmt.Sprintf(`{"studentId": %d}`, s.ID)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, ada, ben)}, app.do(http.MethodGet, detail+"/students"))

	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, app.do(http.MethodDelete, fmt.Sprintf("%s/students/%d", detail, ben.ID)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, app.do(http.MethodDelete, fmt.Sprintf("%s/students/%d", detail, ben.ID)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, ada)}, app.do(http.MethodGet, detail+"/students"))

	// assessments & report
	a := testutil.CreateAssessment(t, app.assessmentRepo, "Quiz", core.NewOptionalID(c.ID), 10)
	testutil.CreateAssessment(t, app.assessmentRepo, "Loose", core.OptionalID{}, 10)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, a)}, app.do(http.MethodGet, detail+"/assessments"))

	rec = app.do(http.MethodGet, detail+"/report")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep report.CourseReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, c.ID, rep.CourseID)
	assert.Equal(t, "Algebra", rep.Name)
	require.Len(t, rep.Assessments, 1)
	assert.Equal(t, a.ID, rep.Assessments[0].AssessmentID)
	require.Len(t, rep.Students, 1)
	assert.Equal(t, ada.ID, rep.Students[0].StudentID)
	assert.Nil(t, rep.ClassAverage)

	// delete
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, app.do(http.MethodDelete, detail))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, app.do(http.MethodGet, detail))

	rec = app.do(http.MethodGet, fmt.Sprintf("/api/assessments/%d", a.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var detached assessment.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detached))
	assert.False(t, detached.CourseID.Valid)
}

func Test_assessmentApi_create(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	c := testutil.CreateCourse(t, app.courseRepo, "Maths", teacher)

	tests := []struct {
		name         string
		body         string
		wantCode     int
		wantCourseID core.OptionalID
		wantFields   map[string]string
		wantQuestion bool
	}{
		{name: "course as number", body: fmt.Sprintf(`{"title": "Quiz", "courseId": %d}`, c.ID), wantCode: http.StatusCreated, wantCourseID: core.NewOptionalID(c.ID)},
		{name: "course as string", body: fmt.Sprintf(`{"title": "Quiz", "courseId": "%d"}`, c.ID), wantCode: http.StatusCreated, wantCourseID: core.NewOptionalID(c.ID)},
		{name: "no course", body: `{"title": "Quiz", "courseId": null, "questionText": "2 + 2?"}`, wantCode: http.StatusCreated, wantQuestion: true},
		{name: "course omitted", body: `{"title": "Quiz", "courseId": ""}`, wantCode: http.StatusCreated},
		{name: "unknown course", body: `{"title": "Quiz", "courseId": 999}`, wantCode: http.StatusBadRequest, wantFields: map[string]string{"courseId": "course not found"}},
		{name: "invalid course", body: `{"title": "Quiz", "courseId": "maths"}`, wantCode: http.StatusBadRequest},
		{name: "blank title", body: `{"title": " "}`, wantCode: http.StatusBadRequest, wantFields: map[string]string{"title": "this field cannot be blank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/assessments", []byte(tt.body))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusCreated {
				res := decodeErr(t, rec)
				if tt.wantFields != nil {
					assert.Equal(t, tt.wantFields, res.Error.Fields)
				}
				return
			}

			var a assessment.Assessment
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
			assert.Equal(t, "Quiz", a.Title)
			assert.Equal(t, tt.wantCourseID, a.CourseID)
			if tt.wantQuestion {
				require.Len(t, a.Questions, 1)
				assert.Equal(t, "2 + 2?", a.Questions[0].Text)
				assert.Equal(t, float64(assessment.DefaultMaxPoints), a.Questions[0].MaxPoints)
			} else {
				assert.Empty(t, a.Questions)
			}
		})
	}

	// filtering by course
	rec := app.do(http.MethodGet, fmt.Sprintf("/api/assessments?courseId=%d", c.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var inCourse []assessment.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inCourse))
	assert.Len(t, inCourse, 2)

	rec = app.do(http.MethodGet, "/api/assessments?courseId=lol")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"courseId": "must be a valid id"}, decodeErr(t, rec).Error.Fields)
}

func Test_assessmentApi_questionsAndScores(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada@test.cd", []string{user.RoleStudent})
	ben := testutil.CreateUser(t, app.usrRepo, "Ben", "ben@test.cd", []string{user.RoleStudent})
	c := testutil.CreateCourse(t, app.courseRepo, "Maths", teacher, ada, ben)
	a := testutil.CreateAssessment(t, app.assessmentRepo, "Quiz", core.NewOptionalID(c.ID), 10)
	detail := fmt.Sprintf("/api/assessments/%d", a.ID)

	// questions
	rec := app.do(http.MethodPost, detail+"/questions", []byte(`{"text": "Prove it", "maxPoints": 20, "position": 2}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var q2 assessment.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q2))
	assert.Equal(t, a.ID, q2.AssessmentID)
	assert.Equal(t, float64(20), q2.MaxPoints)
	q1 := a.Questions[0]

	rec = app.do(http.MethodPut, fmt.Sprintf("/api/questions/%d", q2.ID), []byte(`{"text": "Prove it again"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q2))
	assert.Equal(t, "Prove it again", q2.Text)
	assert.Equal(t, float64(20), q2.MaxPoints)

	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, app.do(http.MethodPut, "/api/questions/999", []byte(`{}`)))

	// scores
	rec = app.do(http.MethodPut, detail+"/scores", []byte(fmt.Sprintf(
		`[{"studentId": %d, "questionId": %d, "value": 11}, {"studentId": 999, "questionId": %d, "value": 1}, {"studentId": %d, "questionId": %d}]`,
		ada.ID, q1.ID, q1.ID, ben.ID, q2.ID,
	)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{
		"scores[0].value":     "must be 10 or less",
		"scores[1].studentId": "student not found",
		"scores[2].value":     "this field is required",
	}, decodeErr(t, rec).Error.Fields)

	rec = app.do(http.MethodPut, detail+"/scores", []byte(fmt.Sprintf(
		`[{"studentId": %d, "questionId": %d, "value": 5}, {"studentId": %d, "questionId": %d, "value": 20}, {"studentId": %d, "questionId": %d, "value": 10}]`,
		ada.ID, q1.ID, ada.ID, q2.ID, ben.ID, q1.ID,
	)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved []score.Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Len(t, saved, 3)

	rec = app.do(http.MethodGet, detail+"/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []score.Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 3)

	// report
	rec = app.do(http.MethodGet, detail+"/report")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep report.AssessmentReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Len(t, rep.Students, 2)
	assert.Equal(t, ada.ID, rep.Students[0].StudentID)
	assert.Equal(t, report.StatusComplete, rep.Students[0].Status)
	assert.Equal(t, 75.0, *rep.Students[0].Average)
	assert.Equal(t, report.StatusPartial, rep.Students[1].Status)
	assert.Equal(t, 100.0, *rep.Students[1].Average)
	assert.Equal(t, 87.5, *rep.ClassAverage)
	assert.Equal(t, report.Completion{Complete: 1, Partial: 1}, rep.Completion)

	// deleting a score invalidates the cached report
	path := fmt.Sprintf("/api/scores?studentId=%d&questionId=%d", ben.ID, q1.ID)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, app.do(http.MethodDelete, path))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, app.do(http.MethodDelete, path))

	rec = app.do(http.MethodGet, detail+"/report")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, report.StatusMissing, rep.Students[1].Status)
	assert.Nil(t, rep.Students[1].Average)
	assert.Equal(t, 75.0, *rep.ClassAverage)

	// deleting a question
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, app.do(http.MethodDelete, fmt.Sprintf("/api/questions/%d", q2.ID)))
	rec = app.do(http.MethodGet, detail)
	require.Equal(t, http.StatusOK, rec.Code)
	var got assessment.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Questions, 1)
	assert.Equal(t, q1.ID, got.Questions[0].ID)
}

func Test_assessmentApi_update(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	c := testutil.CreateCourse(t, app.courseRepo, "Maths", teacher)
	a := testutil.CreateAssessment(t, app.assessmentRepo, "Quiz", core.NewOptionalID(c.ID))
	detail := fmt.Sprintf("/api/assessments/%d", a.ID)

	var got assessment.Assessment
	rec := app.do(http.MethodPut, detail, []byte(`{"title": "Exam"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Exam", got.Title)
	assert.Equal(t, core.NewOptionalID(c.ID), got.CourseID)

	rec = app.do(http.MethodPut, detail, []byte(`{"courseId": null}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Exam", got.Title)
	assert.False(t, got.CourseID.Valid)

	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, app.do(http.MethodDelete, detail))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, app.do(http.MethodGet, detail))
}

func Test_reportApi_screen(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada@test.cd", []string{user.RoleStudent})
	maths := testutil.CreateCourse(t, app.courseRepo, "Maths", teacher, ada)
	physics := testutil.CreateCourse(t, app.courseRepo, "Physics", teacher)
	quiz := testutil.CreateAssessment(t, app.assessmentRepo, "Quiz", core.NewOptionalID(maths.ID), 10)
	exam := testutil.CreateAssessment(t, app.assessmentRepo, "Exam", core.NewOptionalID(maths.ID), 10)
	lab := testutil.CreateAssessment(t, app.assessmentRepo, "Lab", core.NewOptionalID(physics.ID), 10)

	type screen struct {
		CourseID    core.OptionalID          `json:"courseId"`
		Assessments []assessment.Assessment  `json:"assessments"`
		Report      *report.AssessmentReport `json:"report"`
	}

	tests := []struct {
		name            string
		query           string
		wantCode        int
		wantAssessments []int
		wantReport      int
	}{
		{name: "all", wantCode: http.StatusOK, wantAssessments: []int{quiz.ID, exam.ID, lab.ID}},
		{name: "course", query: fmt.Sprintf("courseId=%d", maths.ID), wantCode: http.StatusOK, wantAssessments: []int{quiz.ID, exam.ID}},
		{
			name: "course and assessment", query: fmt.Sprintf("courseId=%d&assessmentId=%d", maths.ID, exam.ID),
			wantCode: http.StatusOK, wantAssessments: []int{quiz.ID, exam.ID}, wantReport: exam.ID,
		},
		{name: "assessment of another course", query: fmt.Sprintf("courseId=%d&assessmentId=%d", maths.ID, lab.ID), wantCode: http.StatusNotFound},
		{name: "unknown course", query: "courseId=999", wantCode: http.StatusNotFound},
		{name: "invalid course", query: "courseId=x", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := app.assessments.Queries()
			rec := app.do(http.MethodGet, "/api/reports?"+tt.query)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, 1, app.assessments.Queries()-before, "assessments must be fetched exactly once")

			var res screen
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			ids := make([]int, 0, len(res.Assessments))
			for _, a := range res.Assessments {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantAssessments, ids)
			if tt.wantReport == 0 {
				assert.Nil(t, res.Report)
				return
			}
			require.NotNil(t, res.Report)
			assert.Equal(t, tt.wantReport, res.Report.AssessmentID)
			require.Len(t, res.Report.Students, 1)
			assert.Equal(t, ada.ID, res.Report.Students[0].StudentID)
		})
	}
}

func Test_assessmentApi_mailReport(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada@test.cd", []string{user.RoleStudent})
	c := testutil.CreateCourse(t, app.courseRepo, "Maths", teacher, ada)
	quiz := testutil.CreateAssessment(t, app.assessmentRepo, "Quiz", core.NewOptionalID(c.ID), 10)
	loose := testutil.CreateAssessment(t, app.assessmentRepo, "Loose", core.OptionalID{}, 10)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusAccepted,
		wantData: []byte(`{"sentTo": "teacher@test.cd"}`),
	}, app.do(http.MethodPost, fmt.Sprintf("/api/assessments/%d/report/mail", quiz.ID)))

	sent := app.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "teacher@test.cd", sent[0].To[0].Address)
	assert.True(t, strings.Contains(sent[0].Subject, "Quiz"), sent[0].Subject)
	require.Len(t, sent[0].Attachments, 1)

	rec := app.do(http.MethodPost, fmt.Sprintf("/api/assessments/%d/report/mail", loose.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, report.ErrNoCourse.Message, decodeErr(t, rec).Message)
	assert.Len(t, app.mailSvc.SentMessages(), 1)
}
