package ddlog

import (
	"io"
	"sync"
)

const (
	// logFileSuffix is appended to Options.Name to build the log file name
	logFileSuffix string = ".log"

	// backupFileSuffix is appended to Options.Name to build the backup file name
	backupFileSuffix string = "-backup.log"
)

// File is the minimal set of operations the log needs from a file
type File interface {
	io.ReaderAt
	io.WriterAt

	// Sync makes every previous write durable
	Sync() error

	// Size returns the current size of the file in bytes
	Size() (int64, error)

	// Close permits to close the file
	Close() error
}

// FileSystem opens and removes the files backing the log
type FileSystem interface {
	// OpenFile opens an existing file in read/write mode.
	// ErrLogNotFound is returned when the file does not exist
	OpenFile(path string) (File, error)

	// CreateFile creates or truncates a file
	CreateFile(path string) (File, error)

	// Remove deletes a file. A missing file is not an error
	Remove(path string) error

	// CopyFile durably copies a file, replacing the destination
	CopyFile(from, to string) error
}

// OSFileSystem is the FileSystem backed by the operating system
type OSFileSystem struct{}

// blockFile is the block store handle. Position pos lives at
// byte offset pos*ioSize and position 0 holds the header
type blockFile struct {
	// path is the full path of the file
	path string

	// file is the underlying file
	file File

	// header is the last header read or written
	header header
}

// MemoryFileSystem is a FileSystem kept in memory. Writes only become
// durable once synced and Crash drops everything else, like a power loss
type MemoryFileSystem struct {
	mu sync.Mutex

	// files are indexed by path
	files map[string]*memoryFile

	// writeErr is returned by every write when set
	writeErr error

	// syncErr is returned by every sync when set
	syncErr error
}

// memoryFile holds the content of one file
type memoryFile struct {
	// current is what readers see
	current []byte

	// durable is what survives Crash
	durable []byte
}

// memoryHandle is an opened memoryFile
type memoryHandle struct {
	fs     *MemoryFileSystem
	file   *memoryFile
	closed bool
}
