package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sqlx.DB
	usrSvc   user.Service
	reports  *report.Engine
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run the goose COMMAND (up, down, status, ...) on the app database")
	_, _ = fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-role ROLE ...] - create or update a user")
	_, _ = fmt.Fprintln(cli.out, "  report -assessment ID - print an assessment report")
}

// stringList collects the values of a repeated flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := cli.newFlagSet("adduser")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email; an existing user with this email is updated.")
	var addUserRoles stringList
	addUserCmd.Var(&addUserRoles, "role", fmt.Sprintf("A role to grant (repeatable), one of: %s.", strings.Join(user.AllRoles, ", ")))

	reportCmd := cli.newFlagSet("report")
	reportAssessment := reportCmd.String("assessment", "", "The ID of the assessment.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := parse(addUserCmd, args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, addUserRoles)

	case "report":
		if err := parse(reportCmd, args[2:]); err != nil {
			return err
		}
		if *reportAssessment == "" {
			reportCmd.Usage()
			return errHelp
		}
		id, err := strconv.Atoi(*reportAssessment)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid assessment ID: %q", *reportAssessment)
		}
		return cli.printReport(id)

	default:
		cli.printUsage()
		return errHelp
	}
}
