package ddlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpers(t *testing.T) {
	assert := assert.New(t)

	t.Run("create_directory", func(t *testing.T) {
		dir := osDataDir("create_directory")
		defer func() {
			assert.Nil(os.RemoveAll(filepath.Dir(dir)))
		}()

		assert.Nil(createDirectoryIfNotExist(dir, 0750))
		assert.DirExists(dir)
		assert.Nil(createDirectoryIfNotExist(dir, 0750))
	})

	t.Run("file_paths", func(t *testing.T) {
		options := Options{DataDir: "/var/lib/db", Name: "ddl_recovery"}
		assert.Equal("/var/lib/db/ddl_recovery.log", options.logFilePath())
		assert.Equal("/var/lib/db/ddl_recovery-backup.log", options.backupFilePath())
	})

	t.Run("quote", func(t *testing.T) {
		assert.Equal("`t1`", quoteIdentifier("t1"))
		assert.Equal("`a``b`", quoteIdentifier("a`b"))
		assert.Equal("`test`.`t1`", qualifiedName("test", "t1"))
		assert.Equal("`t1`", qualifiedName("", "t1"))
	})
}
