package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/trezcool/staffroom/storage/database"
)

var errNoDatabase = errors.New("migrations need a database: unset database.inMemory")

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)",
		Args:  requireArgs(1),
		// goose reads its own arguments
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return database.RunMigration(cli.db, args[0], args[1:]...)
}
