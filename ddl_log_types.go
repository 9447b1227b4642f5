package ddlog

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	// defaultName is the base name of the log and backup files
	defaultName string = "ddl_recovery"

	// defaultMaxRetry is how many times recovery will replay
	// the same execute entry before giving up on it
	defaultMaxRetry uint8 = 3
)

// Options holds config that will be modified by users
type Options struct {
	// DataDir is the directory holding the log file and its backup. It's required
	DataDir string

	// Name is the base name of the log file.
	// Files will be <DataDir>/<Name>.log and <DataDir>/<Name>-backup.log.
	// Default to ddl_recovery
	Name string

	// IOSize is the size of one block.
	// Default to 4096
	IOSize uint16

	// NamePos is the offset within a block where variable length names begin.
	// Default to 56
	NamePos uint16

	// MaxRetry is how many times recovery will replay the same execute
	// entry before retiring it unreplayed.
	// Default to 3
	MaxRetry uint8

	// FileSystem holds the log files.
	// Default to OSFileSystem
	FileSystem FileSystem

	// Logger expose zerolog so it can be override
	Logger *zerolog.Logger

	// MetricsNamespacePrefix is the namespace to use for all ddl log metrics.
	// When set, the full metric name will be `<MetricsNamespacePrefix>_ddl_log_<metric_name>`.
	// Otherwise it will be `ddl_log_<metric_name>`.
	MetricsNamespacePrefix string

	// Registerer is where metrics are registered.
	// Default to prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// memoryEntry is the allocator side handle of one block position.
// It lives either in the free list or in the used list
type memoryEntry struct {
	// pos is the block position this handle represents
	pos uint32

	// next and prev link the handle in the free or used list.
	// The free list only uses next
	next, prev *memoryEntry

	// nextActive links the entries owned by the same State
	nextActive *memoryEntry
}

// DDLLog is the crash recovery log of metadata operations.
// Every block access and every allocator mutation is done with mu held
type DDLLog struct {
	// mu is used to ensure lock concurrency
	mu sync.Mutex

	// Logger expose zerolog so it can be override
	Logger *zerolog.Logger

	// options are configuration options
	options Options

	// fs holds the log files
	fs FileSystem

	// file is the opened log, nil until recovery created it or after Close
	file *blockFile

	// firstFree is the head of the free list
	firstFree *memoryEntry

	// firstUsed is the head of the used list
	firstUsed *memoryEntry

	// numEntries is the highest position ever allocated
	numEntries uint32

	// usedEntries is the length of the used list
	usedEntries int

	// recovered is true once Recover created a fresh log
	recovered bool

	// closed is true once Close has been called
	closed bool

	// metrics holds prometheus metrics
	metrics *metrics
}
