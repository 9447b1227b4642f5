package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lord-Y/ddlog"
	"github.com/jackc/fake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDump(t *testing.T) {
	assert := assert.New(t)

	dataDir := filepath.Join(os.TempDir(), "ddlogdump_test", fake.CharactersN(5))
	defer func() {
		assert.Nil(os.RemoveAll(dataDir))
	}()

	t.Run("log", func(t *testing.T) {
		l, err := ddlog.New(ddlog.Options{DataDir: dataDir, Registerer: prometheus.NewRegistry()})
		assert.Nil(err)
		_, err = l.Recover(nil, nil)
		assert.Nil(err)

		s := l.NewState()
		assert.Nil(s.WriteEntry(&ddlog.Entry{ActionType: ddlog.ActionRenameTable, DB: "test", Name: "t2", FromDB: "test", FromName: "t1"}))
		retired := l.NewState()
		assert.Nil(retired.WriteEntry(&ddlog.Entry{ActionType: ddlog.ActionDeleteTmpFile, Name: "#sql-1"}))
		assert.Nil(retired.DisableEntry())

		var active bytes.Buffer
		assert.Nil(dumpLog(&active, l.Path(), false))
		assert.Contains(active.String(), "io_size: 4096")
		assert.Contains(active.String(), "rename table")
		assert.NotContains(active.String(), "#sql-1")

		var all bytes.Buffer
		assert.Nil(dumpLog(&all, l.Path(), true))
		assert.Contains(all.String(), "#sql-1")

		assert.ErrorIs(dumpLog(&all, filepath.Join(dataDir, "missing.log"), false), ddlog.ErrLogNotFound)
	})

	t.Run("binlog", func(t *testing.T) {
		binlogDir := filepath.Join(dataDir, "binlog")
		binlog, err := ddlog.NewBoltBinlog(ddlog.BoltOptions{DataDir: binlogDir})
		assert.Nil(err)
		assert.Nil(binlog.Emit("test", "DROP TABLE IF EXISTS `test`.`t1`"))
		assert.Nil(binlog.Close())

		var out bytes.Buffer
		assert.Nil(dumpBinlog(&out, binlogDir))
		assert.Equal("1 test: DROP TABLE IF EXISTS `test`.`t1`\n", out.String())
	})

	t.Run("commands", func(t *testing.T) {
		assert.Equal("dump", dumpCommand().Name)
		assert.Equal("binlog", binlogCommand().Name)
	})
}
