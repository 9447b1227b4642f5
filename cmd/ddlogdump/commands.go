package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Lord-Y/ddlog"
	"github.com/urfave/cli/v3"
	bolt "go.etcd.io/bbolt"
)

func dumpCommand() *cli.Command {
	var (
		file string
		all  bool
	)

	return &cli.Command{
		Name:  "dump",
		Usage: "Print the entries of a ddl log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Path of the ddl log file",
				Required:    true,
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "Also print retired entries",
				Destination: &all,
			},
		},
		Action: func(context.Context, *cli.Command) error {
			return dumpLog(os.Stdout, file, all)
		},
	}
}

func binlogCommand() *cli.Command {
	var dataDir string

	return &cli.Command{
		Name:  "binlog",
		Usage: "Print the statements of a bolt binlog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "data-dir",
				Aliases:     []string{"d"},
				Usage:       "Directory holding the binlog database",
				Required:    true,
				Destination: &dataDir,
			},
		},
		Action: func(context.Context, *cli.Command) error {
			return dumpBinlog(os.Stdout, dataDir)
		},
	}
}

// dumpLog prints the ddl log found at path
func dumpLog(w io.Writer, path string, all bool) error {
	dump, err := ddlog.Inspect(ddlog.OSFileSystem{}, path)
	if err != nil {
		return err
	}
	return dump.Write(w, all)
}

// dumpBinlog prints every statement of the binlog found in dataDir
func dumpBinlog(w io.Writer, dataDir string) error {
	binlog, err := ddlog.NewBoltBinlog(ddlog.BoltOptions{
		DataDir: dataDir,
		Options: &bolt.Options{ReadOnly: true},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = binlog.Close()
	}()

	statements, err := binlog.Statements()
	if err != nil {
		return err
	}
	for _, statement := range statements {
		if _, err := fmt.Fprintf(w, "%d %s: %s\n", statement.Sequence, statement.DB, statement.Query); err != nil {
			return err
		}
	}
	return nil
}
