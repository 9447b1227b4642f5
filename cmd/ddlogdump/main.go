package main

import (
	"context"
	"os"

	"github.com/Lord-Y/ddlog/logger"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := cli.Command{
		Name:                  "ddlogdump",
		Usage:                 "Inspect ddl log and binlog files",
		Description:           "Print the entries of a ddl recovery log and the statements of a bolt binlog without modifying them",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			dumpCommand(),
			binlogCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.NewLogger().Fatal().Err(err).Msg("Error occured while executing the program")
	}
}
