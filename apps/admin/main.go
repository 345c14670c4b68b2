package main

import (
	"log"
	"os"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	memcache "github.com/trezcool/darasa/storage/cache/memory"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()

	// set up services
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	relay := new(core.InvalidatorRelay)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), relay)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), usrSvc, relay)
	assessmentSvc := assessment.NewService(sqlxrepos.NewAssessmentRepository(db), courseSvc, relay)
	scoreSvc := score.NewService(sqlxrepos.NewScoreRepository(db), assessmentSvc, usrSvc, validate, translator, relay)

	// reports are computed fresh for each command
	engine := report.NewEngine(
		report.NewServiceFeed(assessmentSvc, courseSvc, scoreSvc, usrSvc),
		memcache.New(conf.Report.CacheSize, conf.Report.CacheTTL),
		report.Options{Policy: report.PolicyFromConfig(conf.Report), Logger: logger},
	)
	relay.SetTarget(engine)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   usrSvc,
		reports:  engine,
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
			_ = db.Close()
			logger.Close()
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
