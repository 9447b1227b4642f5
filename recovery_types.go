package ddlog

import (
	"strings"
)

// RecoveryStatus is the outcome of a recovery pass
type RecoveryStatus uint8

const (
	// RecoveryClean means the log held nothing to replay
	RecoveryClean RecoveryStatus = iota

	// RecoveryReplayed means some execute entries were processed
	// and the log has been recreated
	RecoveryReplayed

	// RecoveryFatal means no new log could be created.
	// It's the only outcome that must prevent the server from starting
	RecoveryFatal
)

// String return a human readable recovery status
func (r RecoveryStatus) String() string {
	switch r {
	case RecoveryReplayed:
		return "replayed"
	case RecoveryFatal:
		return "fatal"
	}
	return "clean"
}

// RecoveryResult summarizes a recovery pass
type RecoveryResult struct {
	// Status is the outcome of the recovery
	Status RecoveryStatus

	// Entries is the number of entries found in the log
	Entries uint32

	// Replayed is the number of chains fully replayed
	Replayed int

	// Binlogged is the number of chains retired because their
	// transaction was already committed in the replication log
	Binlogged int

	// Superseded is the number of chains retired because
	// their conditional entry was still active
	Superseded int

	// RetryExceeded is the number of chains retired unreplayed
	// because they were already tried too many times
	RetryExceeded int

	// Failures is the number of entries or chains that could not be processed
	Failures int

	// Errors holds the error of every failure
	Errors []error
}

// fail records a soft failure
func (r *RecoveryResult) fail(err error) {
	r.Failures++
	r.Errors = append(r.Errors, err)
}

// processed returns how many execute entries recovery acted on
func (r *RecoveryResult) processed() int {
	return r.Replayed + r.Binlogged + r.Superseded + r.RetryExceeded + r.Failures
}

// ActionHandler performs the physical effects of an action entry.
// It's provided by the layer that knows about tables, triggers
// and storage engines
type ActionHandler interface {
	// ExecuteAction is called once per active entry. It performs
	// entry.Phase of entry.ActionType and every step following it,
	// in reverse for partition exchanges. The log retires the entry
	// once it returns nil. The entry is a copy and may be kept
	ExecuteAction(rc *RecoveryContext, entry Entry) error
}

// ActionHandlerFunc is an adapter to use a func as an ActionHandler
type ActionHandlerFunc func(rc *RecoveryContext, entry Entry) error

// ExecuteAction calls f(rc, entry)
func (f ActionHandlerFunc) ExecuteAction(rc *RecoveryContext, entry Entry) error {
	return f(rc, entry)
}

// RecoveryContext is the working state of one replay.
// It is reset between chains
type RecoveryContext struct {
	// binlog is used to emit batched statements, it may be nil
	binlog Binlog

	// query is the statement text assembled from store query entries
	query strings.Builder

	// queryLength is the total length announced by the first chunk
	queryLength uint64

	// dropTables are the quoted tables dropped by the chain so far
	dropTables []string

	// dropViews are the quoted views dropped by the chain so far
	dropViews []string
}
