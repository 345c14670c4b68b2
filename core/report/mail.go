package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const assessmentReportTemplate = "assessment_report"

var ErrNoCourse = core.NewAppError("this assessment does not belong to a course", http.StatusBadRequest)

// Mailer sends assessment reports to course owners.
type Mailer struct {
	engine  *Engine
	courses CourseSource
	users   UserSource
	mailSvc core.EmailService
}

func NewMailer(engine *Engine, courses CourseSource, users UserSource, mailSvc core.EmailService) *Mailer {
	return &Mailer{engine: engine, courses: courses, users: users, mailSvc: mailSvc}
}

// MailAssessmentReport sends the report of the assessment to the owner of its course.
// Returns the address the report was sent to.
func (m *Mailer) MailAssessmentReport(ctx context.Context, assessmentID int) (mail.Address, error) {
	rep, err := m.engine.AssessmentReport(ctx, assessmentID)
	if err != nil {
		return mail.Address{}, err
	}
	if !rep.CourseID.Valid {
		return mail.Address{}, ErrNoCourse
	}

	c, err := m.courses.GetByID(ctx, rep.CourseID.ID)
	if err != nil {
		return mail.Address{}, errors.Wrap(err, "getting course")
	}
	owner, err := m.users.GetByID(ctx, c.OwnerID)
	if err != nil {
		return mail.Address{}, errors.Wrap(err, "getting course owner")
	}

	to := mail.Address{Name: owner.Name, Address: owner.Email}
	msg, err := NewReportMessage(rep, c.Name, to)
	if err != nil {
		return mail.Address{}, err
	}
	m.mailSvc.SendMessages(msg)
	return to, nil
}

// NewReportMessage prepares the report email, with the report attached as CSV.
func NewReportMessage(rep AssessmentReport, courseName string, to mail.Address) (*core.EmailMessage, error) {
	msg := &core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      fmt.Sprintf("%s: %s report", courseName, rep.Title),
		TemplateName: assessmentReportTemplate,
		TemplateData: newReportMailData(rep, courseName, to.Name),
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		return nil, errors.Wrap(err, "writing report CSV")
	}
	if err := msg.Attach(&buf, fmt.Sprintf("assessment-%d-report.csv", rep.AssessmentID), "text/csv"); err != nil {
		return nil, errors.Wrap(err, "attaching report CSV")
	}
	return msg, nil
}

type (
	reportMailData struct {
		Title        string
		CourseName   string
		Recipient    string
		ClassAverage string
		Completion   Completion
		Students     []reportMailRow
	}

	reportMailRow struct {
		Name    string
		Status  Status
		Average string
	}
)

func newReportMailData(rep AssessmentReport, courseName, recipient string) reportMailData {
	data := reportMailData{
		Title:        rep.Title,
		CourseName:   courseName,
		Recipient:    recipient,
		ClassAverage: FormatPercent(rep.ClassAverage),
		Completion:   rep.Completion,
		Students:     make([]reportMailRow, 0, len(rep.Students)),
	}
	for _, row := range rep.Students {
		data.Students = append(data.Students, reportMailRow{
			Name:    row.Name,
			Status:  row.Status,
			Average: FormatPercent(row.Average),
		})
	}
	return data
}

// WriteCSV writes one line per student: name, one column per question (percentages), status & average.
func WriteCSV(w io.Writer, rep AssessmentReport) error {
	cw := csv.NewWriter(w)

	header := []string{"student", "enrolled"}
	for _, q := range rep.Questions {
		header = append(header, csvText(q.Text))
	}
	header = append(header, "status", "average")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rep.Students {
		record := []string{csvText(row.Name), strconv.FormatBool(row.Enrolled)}
		for _, q := range rep.Questions {
			record = append(record, FormatPercent(row.Scores[q.QuestionID]))
		}
		record = append(record, string(row.Status), FormatPercent(row.Average))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvText keeps user supplied text from being read as a formula by spreadsheet apps.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// FormatPercent renders a report figure, "-" when there is none.
func FormatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
