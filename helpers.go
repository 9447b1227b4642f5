package ddlog

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// createDirectoryIfNotExist permits to check if a directory exist
// and create it if not. An error will be return if there is any
func createDirectoryIfNotExist(d string, perm fs.FileMode) error {
	if _, err := os.Stat(d); os.IsNotExist(err) {
		if err := os.MkdirAll(d, perm); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// logFilePath returns the full path of the log file
func (o Options) logFilePath() string {
	return filepath.Join(o.DataDir, o.Name+logFileSuffix)
}

// backupFilePath returns the full path of the backup file
func (o Options) backupFilePath() string {
	return filepath.Join(o.DataDir, o.Name+backupFileSuffix)
}

// quoteIdentifier quotes a database object name for a statement
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// qualifiedName returns `db`.`name`, or `name` when db is empty
func qualifiedName(db, name string) string {
	if db == "" {
		return quoteIdentifier(name)
	}
	return quoteIdentifier(db) + "." + quoteIdentifier(name)
}
