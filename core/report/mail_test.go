package report_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/mail"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
	memcache "github.com/trezcool/darasa/storage/cache/memory"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/testutil"
)

const quizCSV = `student,enrolled,Question A,Question B,status,average
Ada,true,50.00,100.00,complete,75.00
Ben,true,-,-,missing,-
Cyd,false,100.00,-,partial,100.00
`

type outbox struct {
	mu       sync.Mutex
	messages []*core.EmailMessage
}

func (o *outbox) SendMessages(messages ...*core.EmailMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, messages...)
}

type mailFixture struct {
	engine *report.Engine
	mailer *report.Mailer
	outbox *outbox

	teacher    user.User
	quiz, solo assessment.Assessment
}

// setupServices builds the report stack on top of the real services:
// Ada & Ben are enrolled in Maths, Cyd is not but answered the quiz anyway.
func setupServices(t *testing.T) *mailFixture {
	t.Helper()
	ctx := context.Background()
	db := dummydb.Open()
	users := dummydb.NewUserRepository(db)
	courses := dummydb.NewCourseRepository(db)
	assessments := dummydb.NewAssessmentRepository(db)
	scores := dummydb.NewScoreRepository(db)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	usrSvc := user.NewService(users, nil)
	courseSvc := course.NewService(courses, usrSvc, nil)
	assessSvc := assessment.NewService(assessments, courseSvc, nil)
	scoreSvc := score.NewService(scores, assessSvc, usrSvc, validate, translator, nil)

	f := &mailFixture{outbox: new(outbox)}
	f.teacher = testutil.CreateUser(t, users, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	ada := testutil.CreateUser(t, users, "Ada", "ada@test.cd", []string{user.RoleStudent})
	ben := testutil.CreateUser(t, users, "Ben", "ben@test.cd", []string{user.RoleStudent})
	cyd := testutil.CreateUser(t, users, "Cyd", "cyd@test.cd", []string{user.RoleStudent})
	maths := testutil.CreateCourse(t, courses, "Maths", f.teacher, ben, ada)
	f.quiz = testutil.CreateAssessment(t, assessments, "Quiz", core.NewOptionalID(maths.ID), 10, 20)
	f.solo = testutil.CreateAssessment(t, assessments, "Solo", core.OptionalID{}, 10)

	q1, q2 := f.quiz.Questions[0].ID, f.quiz.Questions[1].ID
	_, err := scores.UpsertScores(ctx, []score.Score{
		{StudentID: ada.ID, QuestionID: q1, Value: 5},
		{StudentID: ada.ID, QuestionID: q2, Value: 20},
		{StudentID: cyd.ID, QuestionID: q1, Value: 10},
	})
	require.NoError(t, err)

	feed := report.NewServiceFeed(assessSvc, courseSvc, scoreSvc, usrSvc)
	f.engine = report.NewEngine(feed, memcache.New(0, 0), report.Options{Policy: report.PolicySkip})
	f.mailer = report.NewMailer(f.engine, courseSvc, usrSvc, f.outbox)
	return f
}

func TestServiceFeed(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()

	rep, err := f.engine.AssessmentReport(ctx, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, rep.Students, 3)
	assert.Equal(t, "Ada", rep.Students[0].Name)
	assert.True(t, rep.Students[0].Enrolled)
	assert.Equal(t, "Cyd", rep.Students[2].Name)
	assert.False(t, rep.Students[2].Enrolled)
	assert.Equal(t, report.Completion{Complete: 1, Partial: 1, Missing: 1}, rep.Completion)
	require.NotNil(t, rep.ClassAverage)
	assert.Equal(t, 87.5, *rep.ClassAverage)

	solo, err := f.engine.AssessmentReport(ctx, f.solo.ID)
	require.NoError(t, err)
	assert.Empty(t, solo.Students)
	assert.Nil(t, solo.ClassAverage)

	crep, err := f.engine.CourseReport(ctx, f.quiz.CourseID.ID)
	require.NoError(t, err)
	require.Len(t, crep.Assessments, 1)
	assert.Equal(t, "Quiz", crep.Assessments[0].Title)
}

func TestWriteCSV(t *testing.T) {
	f := setupServices(t)
	rep, err := f.engine.AssessmentReport(context.Background(), f.quiz.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, rep))
	assert.Equal(t, quizCSV, buf.String())
}

func TestWriteCSV_formulas(t *testing.T) {
	pct := func(v float64) *float64 { return &v }
	rep := report.AssessmentReport{
		Questions: []report.QuestionStats{{QuestionID: 1, Text: "@SUM(A1:A9)"}, {QuestionID: 2, Text: "Q-2"}},
		Students: []report.StudentRow{
			{Name: "=1+2", Enrolled: true, Scores: map[int]*float64{1: pct(50)}, Status: report.StatusPartial, Average: pct(50)},
			{Name: "+cmd", Scores: map[int]*float64{}, Status: report.StatusMissing},
			{Name: "-Eve", Scores: map[int]*float64{}, Status: report.StatusMissing},
			{Name: "Ada-Lovelace", Scores: map[int]*float64{}, Status: report.StatusMissing},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, rep))
	assert.Equal(t, `student,enrolled,'@SUM(A1:A9),Q-2,status,average
'=1+2,true,50.00,-,partial,50.00
'+cmd,false,-,-,missing,-
'-Eve,false,-,-,missing,-
Ada-Lovelace,false,-,-,missing,-
`, buf.String())
}

func TestMailer_MailAssessmentReport(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()

	to, err := f.mailer.MailAssessmentReport(ctx, f.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, mail.Address{Name: "Teacher", Address: "teacher@test.cd"}, to)

	require.Len(t, f.outbox.messages, 1)
	msg := f.outbox.messages[0]
	assert.Equal(t, []mail.Address{to}, msg.To)
	assert.Equal(t, "Maths: Quiz report", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "assessment-1-report.csv", att.Filename)
	assert.Equal(t, "text/csv", att.ContentType)
	content, err := base64.StdEncoding.DecodeString(att.Content.String())
	require.NoError(t, err)
	assert.Equal(t, quizCSV, string(content))

	_, err = f.mailer.MailAssessmentReport(ctx, f.solo.ID)
	assert.Equal(t, report.ErrNoCourse, err)
	_, err = f.mailer.MailAssessmentReport(ctx, 404)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assessment not found")
	assert.Len(t, f.outbox.messages, 1)
}

func TestFormatPercent(t *testing.T) {
	v := 66.666
	assert.Equal(t, "-", report.FormatPercent(nil))
	assert.Equal(t, "66.67", report.FormatPercent(&v))
}
