package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	schedsvc "github.com/trezcool/darasa/services/scheduler"
	memcache "github.com/trezcool/darasa/storage/cache/memory"
	rediscache "github.com/trezcool/darasa/storage/cache/redis"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

const redisConnectTimeout = 5 * time.Second

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate
}

// services notify the report engine through the relay; the engine is plugged in once built
func newInvalidatorRelay() *core.InvalidatorRelay {
	return new(core.InvalidatorRelay)
}

func asInvalidator(relay *core.InvalidatorRelay) core.ReportInvalidator {
	return relay
}

func newCourseService(repo course.Repository, users user.Service, invalidator core.ReportInvalidator) course.Service {
	return course.NewService(repo, users, invalidator)
}

func newAssessmentService(
	repo assessment.Repository,
	courses course.Service,
	invalidator core.ReportInvalidator,
) assessment.Service {
	return assessment.NewService(repo, courses, invalidator)
}

func newScoreService(
	repo score.Repository,
	assessments assessment.Service,
	users user.Service,
	validate *validator.Validate,
	translator ut.Translator,
	invalidator core.ReportInvalidator,
) score.Service {
	return score.NewService(repo, assessments, users, validate, translator, invalidator)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newReportMetrics(reg *prometheus.Registry) *report.Metrics {
	return report.NewMetrics(reg)
}

// newReportCache shares the reports through redis when configured; in-process otherwise.
func newReportCache(conf *core.Config, logger core.Logger) (report.Cache, error) {
	if conf.Report.RedisURL == "" {
		return memcache.New(conf.Report.CacheSize, conf.Report.CacheTTL), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	cache, err := rediscache.New(ctx, conf.Report.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	logger.Info("report cache: redis")
	return cache, nil
}

type engineParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Cache       report.Cache
	Metrics     *report.Metrics
	Relay       *core.InvalidatorRelay
	Users       user.Service
	Courses     course.Service
	Assessments assessment.Service
	Scores      score.Service
}

func newReportEngine(p engineParams) *report.Engine {
	engine := report.NewEngine(
		report.NewServiceFeed(p.Assessments, p.Courses, p.Scores, p.Users),
		p.Cache,
		report.Options{
			Policy:  report.PolicyFromConfig(p.Conf.Report),
			TTL:     p.Conf.Report.CacheTTL,
			Logger:  p.Logger,
			Metrics: p.Metrics,
		},
	)
	p.Relay.SetTarget(engine)
	return engine
}

func newReportMailer(
	engine *report.Engine,
	courses course.Service,
	users user.Service,
	mailSvc core.EmailService,
) *report.Mailer {
	return report.NewMailer(engine, courses, users, mailSvc)
}

// newScheduler returns nil when the periodic refresh is disabled (empty spec).
func newScheduler(conf *core.Config, engine *report.Engine, logger core.Logger) (*schedsvc.Scheduler, error) {
	if conf.Report.RefreshSpec == "" {
		return nil, nil
	}
	return schedsvc.NewRefreshScheduler(conf.Report.RefreshSpec, schedsvc.DefaultRefreshTimeout, engine, logger)
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	DB            *sqlx.DB
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       user.Service
	CourseSvc     course.Service
	AssessmentSvc assessment.Service
	ScoreSvc      score.Service
	Reports       *report.Engine
	Mailer        *report.Mailer
	Registry      *prometheus.Registry
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		AssessmentSvc: p.AssessmentSvc,
		ScoreSvc:      p.ScoreSvc,
		Reports:       p.Reports,
		Mailer:        p.Mailer,
		Registry:      p.Registry,
		HealthCheck:   p.DB.PingContext,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	// storage
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewAssessmentRepository))
	must(c.Provide(sqlxrepos.NewScoreRepository))
	must(c.Provide(newReportCache))

	// domain
	must(c.Provide(newInvalidatorRelay))
	must(c.Provide(asInvalidator))
	must(c.Provide(user.NewService))
	must(c.Provide(newCourseService))
	must(c.Provide(newAssessmentService))
	must(c.Provide(newScoreService))

	// reports
	must(c.Provide(newRegistry))
	must(c.Provide(newReportMetrics))
	must(c.Provide(newReportEngine))
	must(c.Provide(newReportMailer))
	must(c.Provide(newScheduler))

	must(c.Provide(newServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
