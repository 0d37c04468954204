package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var (
		name, uname, email string
		roles              []string
		isAdmin            bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate and update an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword("Enter password:")
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			if isAdmin {
				roles = append(roles, user.RoleAdminOwner)
			}
			usr, err := cli.addUser(name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			label := usr.Username
			if label == "" {
				label = usr.Email
			}
			fmt.Fprintf(cli.out, "user %q saved (id: %s)\n", label, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The user's full name.")
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username.")
	cmd.Flags().StringVarP(&email, "email", "e", "", "The user's email.")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "A role to grant (repeatable), e.g. staff:bursar.")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant the owner role.")
	return cmd
}

// addUser updates or creates a user.User. The password policy applies either way.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) (user.User, error) {
	ctx := context.Background()
	lookup := uname
	if lookup == "" {
		lookup = email
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	switch {
	case err == nil:
		isActive := true
		uu := user.UpdateUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			IsActive:        &isActive,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if len(roles) > 0 {
			uu.Roles = roles
		}
		return cli.usrSvc.Update(ctx, usr.ID, uu)
	case core.IsNotFound(err):
		if name == "" {
			name = core.CleanString(uname + " " + email)
		}
		return cli.usrSvc.Create(ctx, user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	default:
		return user.User{}, err
	}
}
