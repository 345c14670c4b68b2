package report

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/darasa/core/assessment"
)

// round2 rounds half away from zero to 2 decimals.
// It works on the shortest decimal form of v, so 2.675 (stored as 2.67499...) rounds up
// while 0.004999999999 rounds down.
func round2(v float64) float64 {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 || len(s)-dot-1 <= 2 {
		return v
	}

	r, err := strconv.ParseFloat(s[:dot+3], 64)
	if err != nil {
		return v
	}
	if s[dot+3] >= '5' {
		r, _ = strconv.ParseFloat(strconv.FormatFloat(r+0.01, 'f', 2, 64), 64)
	}
	if r == 0 {
		return 0
	}
	return math.Copysign(r, v)
}

func rounded(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

type (
	studentResult struct {
		student  Student
		enrolled bool
		percents map[int]float64 // {questionID: percent} answered questions only
		average  *float64
	}

	questionResult struct {
		question assessment.Question
		answered int
		average  *float64
		min      *float64
		max      *float64
	}

	// sheetResult holds unrounded figures; rounding happens when building reports.
	sheetResult struct {
		sheet        Sheet
		questions    []questionResult
		students     []studentResult
		classAverage *float64
	}
)

func (sr studentResult) status(nbQuestions int) Status {
	answered := len(sr.percents)
	switch {
	case answered == 0:
		return StatusMissing
	case answered >= nbQuestions:
		return StatusComplete
	default:
		return StatusPartial
	}
}

func sortStudents(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
}

func sortedQuestions(questions []assessment.Question) []assessment.Question {
	sorted := make([]assessment.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func aggregateSheet(sheet Sheet, policy Policy) sheetResult {
	questions := sortedQuestions(sheet.Questions)
	byID := make(map[int]assessment.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	// rows: the roster first, then anyone else who answered
	rows := make(map[int]*studentResult, len(sheet.Roster))
	addRow := func(s Student, enrolled bool) *studentResult {
		row, ok := rows[s.ID]
		if !ok {
			row = &studentResult{student: s, enrolled: enrolled, percents: make(map[int]float64)}
			rows[s.ID] = row
		}
		return row
	}
	for _, s := range sheet.Roster {
		addRow(s, true)
	}
	others := make(map[int]Student, len(sheet.Others))
	for _, s := range sheet.Others {
		others[s.ID] = s
	}

	for _, sc := range sheet.Scores {
		q, ok := byID[sc.QuestionID]
		if !ok {
			continue
		}
		row, ok := rows[sc.StudentID]
		if !ok {
			s, known := others[sc.StudentID]
			if !known {
				s = Student{ID: sc.StudentID}
			}
			row = addRow(s, false)
		}
		row.percents[q.ID] = sc.Value / q.MaxPoints * 100
	}

	students := make([]Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student)
	}
	sortStudents(students)

	res := sheetResult{
		sheet:     sheet,
		questions: make([]questionResult, 0, len(questions)),
		students:  make([]studentResult, 0, len(students)),
	}

	var class mean
	for _, s := range students {
		row := rows[s.ID]
		var avg mean
		for _, q := range questions {
			if pct, ok := row.percents[q.ID]; ok {
				avg.add(pct)
			} else if policy == PolicyZero {
				avg.add(0)
			}
		}
		row.average = avg.value()
		if row.average != nil {
			class.add(*row.average)
		}
		res.students = append(res.students, *row)
	}
	res.classAverage = class.value()

	for _, q := range questions {
		qr := questionResult{question: q}
		var avg mean
		take := func(pct float64) {
			avg.add(pct)
			if qr.min == nil || pct < *qr.min {
				v := pct
				qr.min = &v
			}
			if qr.max == nil || pct > *qr.max {
				v := pct
				qr.max = &v
			}
		}
		for _, row := range res.students {
			if pct, ok := row.percents[q.ID]; ok {
				qr.answered++
				take(pct)
			} else if policy == PolicyZero && row.enrolled {
				take(0)
			}
		}
		qr.average = avg.value()
		res.questions = append(res.questions, qr)
	}
	return res
}

func (res sheetResult) completion() Completion {
	var c Completion
	for _, row := range res.students {
		switch row.status(len(res.questions)) {
		case StatusComplete:
			c.Complete++
		case StatusPartial:
			c.Partial++
		default:
			c.Missing++
		}
	}
	return c
}

func (res sheetResult) report(policy Policy, computedAt time.Time) AssessmentReport {
	rep := AssessmentReport{
		AssessmentID: res.sheet.AssessmentID,
		Title:        res.sheet.Title,
		CourseID:     res.sheet.CourseID,
		Policy:       policy,
		Students:     make([]StudentRow, 0, len(res.students)),
		Questions:    make([]QuestionStats, 0, len(res.questions)),
		ClassAverage: rounded(res.classAverage),
		Completion:   res.completion(),
		ComputedAt:   computedAt,
	}

	for _, row := range res.students {
		scores := make(map[int]*float64, len(res.questions))
		for _, qr := range res.questions {
			if pct, ok := row.percents[qr.question.ID]; ok {
				scores[qr.question.ID] = rounded(&pct)
			} else {
				scores[qr.question.ID] = nil
			}
		}
		rep.Students = append(rep.Students, StudentRow{
			StudentID: row.student.ID,
			Name:      row.student.Name,
			Enrolled:  row.enrolled,
			Scores:    scores,
			Answered:  len(row.percents),
			Status:    row.status(len(res.questions)),
			Average:   rounded(row.average),
		})
	}

	for _, qr := range res.questions {
		rep.Questions = append(rep.Questions, QuestionStats{
			QuestionID: qr.question.ID,
			Text:       qr.question.Text,
			MaxPoints:  qr.question.MaxPoints,
			Position:   qr.question.Position,
			Answered:   qr.answered,
			Average:    rounded(qr.average),
			Min:        rounded(qr.min),
			Max:        rounded(qr.max),
		})
	}
	return rep
}

// AggregateAssessment computes the report of one assessment.
func AggregateAssessment(sheet Sheet, policy Policy, computedAt time.Time) AssessmentReport {
	return aggregateSheet(sheet, policy).report(policy, computedAt)
}

// AggregateCourse computes the report of a course from the sheets of its assessments.
// A student's course average is the mean of their non-null assessment averages.
func AggregateCourse(cs CourseSheet, policy Policy, computedAt time.Time) CourseReport {
	sheets := make([]Sheet, len(cs.Sheets))
	copy(sheets, cs.Sheets)
	sort.SliceStable(sheets, func(i, j int) bool { return sheets[i].AssessmentID < sheets[j].AssessmentID })

	type acc struct {
		student  Student
		enrolled bool
		avg      mean
	}
	accs := make(map[int]*acc, len(cs.Roster))
	for _, s := range cs.Roster {
		accs[s.ID] = &acc{student: s, enrolled: true}
	}

	rep := CourseReport{
		CourseID:    cs.CourseID,
		Name:        cs.Name,
		Policy:      policy,
		Assessments: make([]AssessmentSummary, 0, len(sheets)),
		ComputedAt:  computedAt,
	}

	for _, sheet := range sheets {
		res := aggregateSheet(sheet, policy)
		rep.Assessments = append(rep.Assessments, AssessmentSummary{
			AssessmentID: sheet.AssessmentID,
			Title:        sheet.Title,
			ClassAverage: rounded(res.classAverage),
			Completion:   res.completion(),
		})
		for _, row := range res.students {
			a, ok := accs[row.student.ID]
			if !ok {
				a = &acc{student: row.student, enrolled: row.enrolled}
				accs[row.student.ID] = a
			}
			if row.average != nil {
				a.avg.add(*row.average)
			}
		}
	}

	students := make([]Student, 0, len(accs))
	for _, a := range accs {
		students = append(students, a.student)
	}
	sortStudents(students)

	var class mean
	rep.Students = make([]CourseStudent, 0, len(students))
	for _, s := range students {
		a := accs[s.ID]
		avg := a.avg.value()
		if avg != nil {
			class.add(*avg)
		}
		rep.Students = append(rep.Students, CourseStudent{
			StudentID: s.ID,
			Name:      s.Name,
			Enrolled:  a.enrolled,
			Average:   rounded(avg),
			Assessed:  a.avg.n,
		})
	}
	rep.ClassAverage = rounded(class.value())
	return rep
}
