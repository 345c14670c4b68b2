package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	emailsvc "github.com/trezcool/darasa/services/email"
	memcache "github.com/trezcool/darasa/storage/cache/memory"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/testutil"
)

const indexHTML = `<!doctype html><html><body><div id="app"></div></body></html>`

// countingAssessments counts the assessment list queries.
type countingAssessments struct {
	assessment.Service
	queries int32
}

func (svc *countingAssessments) Query(
	ctx context.Context,
	filter assessment.QueryFilter,
	orderings []core.DBOrdering,
) ([]assessment.Assessment, error) {
	atomic.AddInt32(&svc.queries, 1)
	return svc.Service.Query(ctx, filter, orderings)
}

func (svc *countingAssessments) Queries() int {
	return int(atomic.LoadInt32(&svc.queries))
}

type testApp struct {
	server *echoapi.Server
	logger *testutil.Logger

	usrRepo        user.Repository
	courseRepo     course.Repository
	assessmentRepo assessment.Repository
	scoreRepo      score.Repository

	assessments *countingAssessments
	mailSvc     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	t.Helper()

	publicDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "index.html"), []byte(indexHTML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(publicDir, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "static", "app.js"), []byte("console.log('darasa')"), 0o644))

	conf := &core.Config{
		AppName:  "Darasa",
		TestMode: true,
		Build:    "test",
		Server:   core.ServerConfig{PublicDir: publicDir, DisableReqLogs: true},
	}
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := dummydb.Open()
	app := &testApp{
		logger:         logger,
		usrRepo:        dummydb.NewUserRepository(db),
		courseRepo:     dummydb.NewCourseRepository(db),
		assessmentRepo: dummydb.NewAssessmentRepository(db),
		scoreRepo:      dummydb.NewScoreRepository(db),
	}

	// set up services
	relay := new(core.InvalidatorRelay)
	usrSvc := user.NewService(app.usrRepo, relay)
	courseSvc := course.NewService(app.courseRepo, usrSvc, relay)
	app.assessments = &countingAssessments{Service: assessment.NewService(app.assessmentRepo, courseSvc, relay)}
	scoreSvc := score.NewService(app.scoreRepo, app.assessments, usrSvc, validate, translator, relay)

	registry := prometheus.NewRegistry()
	engine := report.NewEngine(
		report.NewServiceFeed(app.assessments, courseSvc, scoreSvc, usrSvc),
		memcache.New(0, 0),
		report.Options{Policy: report.PolicySkip, Logger: logger, Metrics: report.NewMetrics(registry)},
	)
	relay.SetTarget(engine)
	app.mailSvc = emailsvc.NewConsoleServiceMock(conf, logger)

	// set up server
	app.server = echoapi.NewServer(echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		AssessmentSvc: app.assessments,
		ScoreSvc:      scoreSvc,
		Reports:       engine,
		Mailer:        report.NewMailer(engine, courseSvc, usrSvc, app.mailSvc),
		Registry:      registry,
	})
	return app
}

type httpErr struct {
	Status string `json:"status"`
	Error  struct {
		StatusCode int               `json:"statusCode"`
		Fields     map[string]string `json:"fields"`
	} `json:"error"`
	Message interface{} `json:"message"`
	Stack   string      `json:"stack"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app *testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) httpErr {
	t.Helper()
	var res httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	assert.Equal(t, "error", res.Status)
	return res
}
