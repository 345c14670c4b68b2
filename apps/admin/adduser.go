package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email string, roles []string) error {
	nu := user.NewUser{
		Name:  core.CleanString(name),
		Email: core.CleanString(email, true /* lower */),
		Roles: roles,
	}
	if err := cli.validate.Struct(nu); err != nil {
		return err
	}

	usr, created, err := cli.usrSvc.Save(context.Background(), nu)
	if err != nil {
		return err
	}
	action := "updated"
	if created {
		action = "created"
	}
	_, _ = fmt.Fprintf(cli.out, "user %s: #%d %s <%s> %v\n", action, usr.ID, usr.Name, usr.Email, usr.Roles)
	return nil
}
