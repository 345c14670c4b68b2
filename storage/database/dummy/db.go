package dummydb

import (
	"sort"
	"sync"

	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
)

type enrollmentKey struct {
	courseID  int
	studentID int
}

type scoreKey struct {
	studentID  int
	questionID int
}

// DB is an in-memory database mirroring the SQL schema, cascades included.
// One lock guards every table so that cascading deletes are atomic.
type DB struct {
	sync.RWMutex

	users       map[int]*user.User
	courses     map[int]*course.Course
	enrollments map[enrollmentKey]*course.Enrollment
	assessments map[int]*assessment.Assessment // without questions
	questions   map[int]*assessment.Question
	scores      map[scoreKey]*score.Score

	userPK, coursePK, assessmentPK, questionPK, scorePK int
}

func Open() *DB {
	db := new(DB)
	db.reset()
	return db
}

func (db *DB) reset() {
	db.users = make(map[int]*user.User)
	db.courses = make(map[int]*course.Course)
	db.enrollments = make(map[enrollmentKey]*course.Enrollment)
	db.assessments = make(map[int]*assessment.Assessment)
	db.questions = make(map[int]*assessment.Question)
	db.scores = make(map[scoreKey]*score.Score)
	db.userPK, db.coursePK, db.assessmentPK, db.questionPK, db.scorePK = 0, 0, 0, 0, 0
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.reset()
}

// deleteQuestionLocked removes a question and its scores.
func (db *DB) deleteQuestionLocked(id int) {
	delete(db.questions, id)
	for key := range db.scores {
		if key.questionID == id {
			delete(db.scores, key)
		}
	}
}

func (db *DB) questionsOfLocked(assessmentID int) []assessment.Question {
	questions := make([]assessment.Question, 0)
	for _, q := range db.questions {
		if q.AssessmentID == assessmentID {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
	return questions
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
