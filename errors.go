package ddlog

import "errors"

var (
	ErrDataDirRequired = errors.New("data dir required")
	ErrLogNotFound     = errors.New("ddl log not found")
	ErrLogFormat       = errors.New("ddl log has an unknown format")
	ErrLogClosed       = errors.New("ddl log is closed")
	ErrLogNotRecovered = errors.New("ddl log must be recovered before being written")
	ErrEntryOverflow   = errors.New("ddl log entry names do not fit in one block")
	ErrInvalidPosition = errors.New("invalid ddl log entry position")
	ErrInvalidIOSize   = errors.New("invalid io size or name position")
	ErrReadEntry       = errors.New("failed to read ddl log entry")
	ErrWriteEntry      = errors.New("failed to write ddl log entry")
	ErrSync            = errors.New("failed to sync ddl log")
	ErrNotActionEntry  = errors.New("ddl log entry is not an action entry")
	ErrUnknownAction   = errors.New("unknown ddl log action")
	ErrPhaseRegression = errors.New("ddl log phase cannot go backward")
	ErrRetryExceeded   = errors.New("ddl log execute entry exceeded max retries")
	ErrStateInactive   = errors.New("ddl log state has no entries")
	ErrRecoveryFatal   = errors.New("ddl log recovery could not create a new log")
	ErrNoActionHandler = errors.New("no action handler to replay ddl log entries")
	ErrStatementFormat = errors.New("binlog statement is corrupted")
)
