package ddlog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// newRecoveryContext returns an empty RecoveryContext
func newRecoveryContext(binlog Binlog) *RecoveryContext {
	return &RecoveryContext{binlog: binlog}
}

// Binlog returns the replication log capability, nil when unavailable
func (rc *RecoveryContext) Binlog() Binlog {
	return rc.binlog
}

// Query returns the statement text stored by the chain being replayed
func (rc *RecoveryContext) Query() string {
	return rc.query.String()
}

// QueryComplete reports whether every chunk of the stored statement was read
func (rc *RecoveryContext) QueryComplete() bool {
	return uint64(rc.query.Len()) == rc.queryLength
}

// reset clears everything gathered from the previous chain
func (rc *RecoveryContext) reset() {
	rc.query.Reset()
	rc.queryLength = 0
	rc.dropTables = rc.dropTables[:0]
	rc.dropViews = rc.dropViews[:0]
}

// release frees the buffers at the end of recovery
func (rc *RecoveryContext) release() {
	rc.reset()
	rc.dropTables = nil
	rc.dropViews = nil
}

// emit sends the statement to the replication log when there is one
func (rc *RecoveryContext) emit(db, statement string) error {
	if rc.binlog == nil {
		return nil
	}
	return rc.binlog.Emit(db, statement)
}

// flushDrops emits the tables and views dropped by the chain as one
// statement each, in the database of the drop init entry
func (rc *RecoveryContext) flushDrops(entry *Entry) error {
	comment := ""
	if entry.ExtraName != "" {
		comment = " " + entry.ExtraName
	}
	if len(rc.dropTables) > 0 {
		if err := rc.emit(entry.DB, "DROP TABLE IF EXISTS "+strings.Join(rc.dropTables, ",")+comment); err != nil {
			return err
		}
		rc.dropTables = rc.dropTables[:0]
	}
	if len(rc.dropViews) > 0 {
		if err := rc.emit(entry.DB, "DROP VIEW IF EXISTS "+strings.Join(rc.dropViews, ",")+comment); err != nil {
			return err
		}
		rc.dropViews = rc.dropViews[:0]
	}
	return nil
}

// apply runs the phases the log handles itself. It returns false when
// the phase must be given to the action handler
func (rc *RecoveryContext) apply(entry *Entry) (bool, error) {
	switch entry.ActionType {
	case ActionStoreQuery:
		if !entry.Flags.Has(FlagQueryContinuation) {
			rc.query.Reset()
			rc.queryLength = entry.UniqueID
		}
		rc.query.WriteString(entry.ExtraName)
		return true, nil

	case ActionDropTable:
		if entry.Phase == DropPhaseBinlog {
			rc.dropTables = append(rc.dropTables, qualifiedName(entry.DB, entry.Name))
			return true, nil
		}

	case ActionDropView:
		if entry.Phase == DropViewPhaseBinlog {
			rc.dropViews = append(rc.dropViews, qualifiedName(entry.DB, entry.Name))
			return true, nil
		}

	case ActionDropInit:
		return true, rc.flushDrops(entry)

	case ActionDropDB:
		if entry.Phase == DropDBPhaseBinlog {
			return true, rc.emit(entry.DB, "DROP DATABASE IF EXISTS "+quoteIdentifier(entry.DB))
		}
	}
	return false, nil
}

// Recover replays every chain left by a previous run and recreates an
// empty log. It must run once, before any statement uses the log.
// Only a log that cannot be recreated returns an error; every other
// failure is counted in the result and logged
func (l *DDLLog) Recover(handler ActionHandler, binlog Binlog) (RecoveryResult, error) {
	start := time.Now()
	defer l.metrics.timeSince(start)

	result := RecoveryResult{Status: RecoveryClean}
	if err := l.openForRecovery(&result); err != nil {
		return result, err
	}

	if result.Entries > 0 {
		if binlog != nil {
			l.closeBinloggedEvents(binlog, &result)
		}
		rc := newRecoveryContext(binlog)
		l.replay(rc, handler, &result)
		rc.release()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeFileNoLock()
	if err := l.createNoLock(); err != nil {
		result.Status = RecoveryFatal
		return result, fmt.Errorf("%w: %w", ErrRecoveryFatal, err)
	}
	l.recovered = true

	if result.processed() > 0 {
		result.Status = RecoveryReplayed
	}
	event := l.Logger.Info()
	if result.Failures > 0 {
		event = l.Logger.Warn()
	}
	event.
		Str("status", result.Status.String()).
		Uint32("entries", result.Entries).
		Int("replayed", result.Replayed).
		Int("binlogged", result.Binlogged).
		Int("superseded", result.Superseded).
		Int("retryExceeded", result.RetryExceeded).
		Int("failures", result.Failures).
		Msgf("DDL log recovery done")
	return result, nil
}

// openForRecovery opens the existing log and takes its backup.
// A missing or unreadable log is treated as empty
func (l *DDLLog) openForRecovery(result *RecoveryResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	l.closeFileNoLock()
	l.releaseAll()

	file, entries, err := openBlockFile(l.fs, l.Path())
	switch {
	case err == nil:
	case errors.Is(err, ErrLogNotFound):
		l.Logger.Debug().Str("path", l.Path()).Msgf("No ddl log to recover")
		return nil
	default:
		l.Logger.Warn().Err(err).
			Str("path", l.Path()).
			Msgf("DDL log is unusable, a new one will be created")
		return nil
	}

	l.file = file
	l.numEntries = entries
	result.Entries = entries
	if entries > 0 {
		l.backupNoLock()
	}
	return nil
}

// backupNoLock copies the log beside itself once. The header flag
// keeps a crash during recovery from overwriting the first backup
// with a partly replayed log
func (l *DDLLog) backupNoLock() {
	if l.file.header.backupDone {
		return
	}
	if err := l.fs.CopyFile(l.Path(), l.BackupPath()); err != nil {
		l.Logger.Warn().Err(err).
			Str("backup", l.BackupPath()).
			Msgf("Fail to backup ddl log")
		return
	}
	l.file.header.backupDone = true
	if err := l.file.writeHeader(); err != nil {
		l.Logger.Warn().Err(err).Msgf("Fail to record ddl log backup")
		return
	}
	_ = l.syncNoLock()
}

// closeBinloggedEvents retires every execute entry whose transaction
// is already committed in the replication log
func (l *DDLLog) closeBinloggedEvents(binlog Binlog, result *RecoveryResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	disabled := false
	for pos := uint32(1); pos <= l.numEntries; pos++ {
		entry, err := l.readEntryNoLock(pos)
		if err != nil || entry.EntryType != EntryExecute || entry.XID == 0 {
			continue
		}
		if !binlog.IsCommitted(entry.XID) {
			continue
		}
		if err := l.disableEntryNoLock(pos); err != nil {
			continue
		}
		disabled = true
		result.Binlogged++
		l.Logger.Debug().
			Uint32("entryPos", pos).
			Uint64("xid", entry.XID).
			Msgf("DDL log chain already in binary log")
	}
	if disabled {
		_ = l.syncNoLock()
	}
}

// replay walks every execute entry of the log
func (l *DDLLog) replay(rc *RecoveryContext, handler ActionHandler, result *RecoveryResult) {
	for pos := uint32(1); pos <= result.Entries; pos++ {
		head, ok := l.prepareExecuteEntry(pos, result)
		if !ok {
			continue
		}

		rc.reset()
		if err := l.executeChain(rc, handler, head); err != nil {
			l.Logger.Error().Err(err).
				Uint32("entryPos", pos).
				Msgf("Fail to replay ddl log chain")
			l.metrics.recoveryFailed("action")
			result.fail(fmt.Errorf("execute entry %d: %w", pos, err))
			continue
		}

		l.mu.Lock()
		if err := l.disableEntryNoLock(pos); err == nil {
			_ = l.syncNoLock()
		}
		l.mu.Unlock()
		result.Replayed++
		l.metrics.chainRecovered()
	}
}

// prepareExecuteEntry reads the entry at pos and returns the head of its
// chain when it must be replayed. The retry counter is persisted first so
// a chain crashing the server is eventually given up
func (l *DDLLog) prepareExecuteEntry(pos uint32, result *RecoveryResult) (uint32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.readEntryNoLock(pos)
	if err != nil {
		l.Logger.Error().Err(err).Uint32("entryPos", pos).Msgf("Fail to read ddl log entry")
		l.metrics.recoveryFailed("read")
		result.fail(err)
		return 0, false
	}
	if entry.EntryType != EntryExecute {
		return 0, false
	}

	retry := int(entry.RetryCount()) + 1
	if retry > int(l.options.MaxRetry) {
		l.Logger.Error().
			Uint32("entryPos", pos).
			Int("retry", retry-1).
			Msgf("DDL log execute entry was already tried too many times, skipping it")
		if err := l.disableEntryNoLock(pos); err == nil {
			_ = l.syncNoLock()
		}
		l.metrics.recoveryFailed("retry")
		result.RetryExceeded++
		result.fail(fmt.Errorf("execute entry %d: %w", pos, ErrRetryExceeded))
		return 0, false
	}

	entry.UniqueID = packExecuteID(entry.CondPos(), uint8(retry))
	err = l.writeEntryNoLock(entry)
	if err == nil {
		err = l.syncNoLock()
	}
	if err != nil {
		l.metrics.recoveryFailed("write")
		result.fail(err)
		return 0, false
	}

	if cond := entry.CondPos(); cond != 0 && l.isExecuteEntryActiveNoLock(cond) {
		l.Logger.Debug().
			Uint32("entryPos", pos).
			Uint32("condPos", cond).
			Msgf("DDL log chain superseded by an active chain")
		if err := l.disableEntryNoLock(pos); err == nil {
			_ = l.syncNoLock()
		}
		result.Superseded++
		return 0, false
	}
	return entry.NextEntry, true
}

// executeChain walks the action entries starting at first and replays
// every active one. It stops at the first failure
func (l *DDLLog) executeChain(rc *RecoveryContext, handler ActionHandler, first uint32) error {
	l.mu.Lock()
	limit := l.numEntries
	l.mu.Unlock()

	steps := uint32(0)
	for pos := first; pos != 0; {
		if steps++; steps > limit {
			return fmt.Errorf("chain starting at %d loops: %w", first, ErrInvalidPosition)
		}

		l.mu.Lock()
		entry, err := l.readEntryNoLock(pos)
		l.mu.Unlock()
		if err != nil {
			return fmt.Errorf("action entry %d: %w", pos, err)
		}

		next := entry.NextEntry
		switch entry.EntryType {
		case EntryIgnore:
			pos = next
			continue
		case EntryAction:
		default:
			return fmt.Errorf("entry %d is %s: %w", pos, entry.EntryType, ErrNotActionEntry)
		}

		if err := l.executeAction(rc, handler, entry); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

// executeAction replays the entry from its recorded phase. The action
// handler runs once and owns every remaining step of the action; the
// phases the log handles itself are applied after it, then the entry
// is durably retired. The lock is released while the handler runs
func (l *DDLLog) executeAction(rc *RecoveryContext, handler ActionHandler, entry *Entry) error {
	if !entry.ActionType.Valid() {
		return fmt.Errorf("entry %d action %d: %w", entry.Pos, entry.ActionType, ErrUnknownAction)
	}
	if isTerminal(entry.ActionType, entry.Phase) {
		return nil
	}

	handled, err := rc.apply(entry)
	if err != nil {
		return fmt.Errorf("%s phase %d of entry %d: %w", entry.ActionType, entry.Phase, entry.Pos, err)
	}
	if actionReplay[entry.ActionType] == replayKeep {
		return nil
	}

	if !handled {
		if handler == nil {
			return ErrNoActionHandler
		}
		l.Logger.Debug().
			Uint32("entryPos", entry.Pos).
			Str("action", entry.ActionType.String()).
			Uint8("phase", entry.Phase).
			Msgf("Replaying ddl log action")
		if err := handler.ExecuteAction(rc, *entry); err != nil {
			return fmt.Errorf("%s phase %d of entry %d: %w", entry.ActionType, entry.Phase, entry.Pos, err)
		}
	}

	for _, phase := range remainingPhases(entry.ActionType, entry.Phase) {
		step := *entry
		step.Phase = phase
		if _, err := rc.apply(&step); err != nil {
			return fmt.Errorf("%s phase %d of entry %d: %w", entry.ActionType, phase, entry.Pos, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setPhaseNoLock(entry, PhaseRetired, true)
}
