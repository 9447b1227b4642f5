package ddlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Lord-Y/ddlog/logger"
	"github.com/jackc/fake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

// testDataDir is the directory used by logs kept in memory
const testDataDir = "/ddlog_test"

// basicLogSetup is only a helper for other unit testing.
// Every call with the same fs behaves like a server restart
func basicLogSetup(t *testing.T, fs *MemoryFileSystem) *DDLLog {
	return logSetup(t, Options{FileSystem: fs})
}

// logSetup is like basicLogSetup but with custom options
func logSetup(t *testing.T, options Options) *DDLLog {
	if options.DataDir == "" {
		options.DataDir = testDataDir
	}
	zlogger := logger.NewLogger().With().Str("logProvider", "ddlog_test").Logger()
	options.Logger = &zlogger
	options.Registerer = prometheus.NewRegistry()

	l, err := New(options)
	assert.Nil(t, err)
	return l
}

// recoveredLogSetup returns a log with an empty recovery done
func recoveredLogSetup(t *testing.T, fs *MemoryFileSystem) *DDLLog {
	l := basicLogSetup(t, fs)
	result, err := l.Recover(nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, RecoveryClean, result.Status)
	return l
}

// osDataDir returns a unique directory for tests using the real file system
func osDataDir(name string) string {
	return filepath.Join(os.TempDir(), "ddlog_test", fake.CharactersN(5), name)
}

// handlerCall is one invocation of recordingHandler
type handlerCall struct {
	action ActionType
	phase  uint8
	name   string
	query  string
}

func (c handlerCall) String() string {
	return fmt.Sprintf("%s:%d:%s", c.action, c.phase, c.name)
}

// recordingHandler records every entry it is asked to execute.
// When fail is set, its error is returned instead of nil
type recordingHandler struct {
	mu    sync.Mutex
	calls []handlerCall
	fail  func(entry Entry) error
}

func (h *recordingHandler) ExecuteAction(rc *RecoveryContext, entry Entry) error {
	h.mu.Lock()
	h.calls = append(h.calls, handlerCall{
		action: entry.ActionType,
		phase:  entry.Phase,
		name:   entry.Name,
		query:  rc.Query(),
	})
	fail := h.fail
	h.mu.Unlock()

	if fail != nil {
		return fail(entry)
	}
	return nil
}

// trace returns the calls as action:phase:name strings
func (h *recordingHandler) trace() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	trace := make([]string, 0, len(h.calls))
	for _, call := range h.calls {
		trace = append(trace, call.String())
	}
	return trace
}

// memoryBinlog is a Binlog kept in memory
type memoryBinlog struct {
	committed  map[uint64]bool
	statements []Statement
}

func newMemoryBinlog(committed ...uint64) *memoryBinlog {
	b := &memoryBinlog{committed: make(map[uint64]bool)}
	for _, xid := range committed {
		b.committed[xid] = true
	}
	return b
}

func (b *memoryBinlog) IsCommitted(xid uint64) bool {
	return b.committed[xid]
}

func (b *memoryBinlog) Emit(db, statement string) error {
	b.statements = append(b.statements, Statement{
		Sequence: uint64(len(b.statements) + 1),
		DB:       db,
		Query:    statement,
	})
	return nil
}

func (b *memoryBinlog) queries() []string {
	queries := make([]string, 0, len(b.statements))
	for _, statement := range b.statements {
		queries = append(queries, statement.Query)
	}
	return queries
}
