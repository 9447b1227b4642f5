package ddlog

import (
	"errors"
	"fmt"

	"github.com/Lord-Y/ddlog/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// New returns a ddl log configured with the provided options.
// The log file is not touched until Recover or the first write
func New(options Options) (*DDLLog, error) {
	if options.DataDir == "" {
		return nil, ErrDataDirRequired
	}
	if options.Name == "" {
		options.Name = defaultName
	}
	if options.IOSize == 0 {
		options.IOSize = DefaultIOSize
	}
	if options.NamePos == 0 {
		options.NamePos = DefaultNamePos
	}
	if !validLayout(options.IOSize, options.NamePos) {
		return nil, fmt.Errorf("io size %d name pos %d: %w", options.IOSize, options.NamePos, ErrInvalidIOSize)
	}
	if options.MaxRetry == 0 {
		options.MaxRetry = defaultMaxRetry
	}
	if options.FileSystem == nil {
		options.FileSystem = OSFileSystem{}
	}
	if options.Logger == nil {
		options.Logger = logger.NewLogger()
	}
	if options.Registerer == nil {
		options.Registerer = prometheus.DefaultRegisterer
	}

	return &DDLLog{
		Logger:  options.Logger,
		options: options,
		fs:      options.FileSystem,
		metrics: newMetrics(options.Name, options.MetricsNamespacePrefix, options.Registerer),
	}, nil
}

// Path returns the full path of the log file
func (l *DDLLog) Path() string {
	return l.options.logFilePath()
}

// BackupPath returns the full path of the backup file
func (l *DDLLog) BackupPath() string {
	return l.options.backupFilePath()
}

// ensureOpenNoLock creates an empty log when none is opened yet.
// A log left by a previous run is never replaced before Recover
func (l *DDLLog) ensureOpenNoLock() error {
	if l.closed {
		return ErrLogClosed
	}
	if l.file != nil {
		return nil
	}
	if !l.recovered {
		file, err := l.fs.OpenFile(l.Path())
		switch {
		case err == nil:
			_ = file.Close()
			l.Logger.Error().
				Str("path", l.Path()).
				Msgf("DDL log written before recovery ran")
			return ErrLogNotRecovered
		case !errors.Is(err, ErrLogNotFound):
			return err
		}
	}
	return l.createNoLock()
}

// createNoLock creates an empty log with the configured layout
func (l *DDLLog) createNoLock() error {
	file, err := createBlockFile(l.fs, l.Path(), header{
		ioSize:  l.options.IOSize,
		namePos: l.options.NamePos,
	})
	if err != nil {
		l.Logger.Error().Err(err).
			Str("path", l.Path()).
			Msgf("Fail to create ddl log")
		return err
	}
	l.file = file
	l.releaseAll()
	return nil
}

// closeFileNoLock closes the opened log if any
func (l *DDLLog) closeFileNoLock() {
	if l.file == nil {
		return
	}
	if err := l.file.close(); err != nil {
		l.Logger.Warn().Err(err).
			Str("path", l.file.path).
			Msgf("Fail to close ddl log")
	}
	l.file = nil
}

// Close releases every entry, closes and deletes the log file.
// It must only be called once no statement uses the log anymore
func (l *DDLLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.releaseAll()
	l.closeFileNoLock()
	return l.fs.Remove(l.Path())
}

// NumEntries returns the highest position ever allocated
func (l *DDLLog) NumEntries() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numEntries
}

// MaxNameSpace returns how many bytes of names fit in one entry
func (l *DDLLog) MaxNameSpace() int {
	return FreeSpace(&Entry{}, l.options.IOSize, l.options.NamePos)
}

// layout returns io size and name pos of the opened log
func (l *DDLLog) layout() (uint16, uint16) {
	if l.file != nil {
		return l.file.header.ioSize, l.file.header.namePos
	}
	return l.options.IOSize, l.options.NamePos
}

// ReadEntry returns the entry stored at pos
func (l *DDLLog) ReadEntry(pos uint32) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readEntryNoLock(pos)
}

// readEntryNoLock returns the entry stored at pos
func (l *DDLLog) readEntryNoLock(pos uint32) (*Entry, error) {
	if l.file == nil {
		return nil, ErrLogClosed
	}
	block, err := l.file.read(pos)
	if err != nil {
		return nil, err
	}
	return decodeEntry(block, pos, l.file.header.namePos)
}

// writeEntryNoLock encodes and stores the entry at entry.Pos without syncing
func (l *DDLLog) writeEntryNoLock(entry *Entry) error {
	ioSize, namePos := l.layout()
	block, err := encodeEntry(entry, ioSize, namePos)
	if err != nil {
		return err
	}
	if err := l.file.write(entry.Pos, block); err != nil {
		l.Logger.Error().Err(err).
			Uint32("entryPos", entry.Pos).
			Msgf("Fail to write ddl log entry")
		return err
	}
	l.metrics.entryWritten(entry.EntryType)
	return nil
}

// updateEntryNoLock reads the entry at pos, applies fn and writes it back
// without syncing
func (l *DDLLog) updateEntryNoLock(pos uint32, fn func(entry *Entry) error) error {
	entry, err := l.readEntryNoLock(pos)
	if err != nil {
		return err
	}
	if err := fn(entry); err != nil {
		return err
	}
	return l.writeEntryNoLock(entry)
}

// Sync makes every previous write durable
func (l *DDLLog) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.syncNoLock()
}

// syncNoLock makes every previous write durable
func (l *DDLLog) syncNoLock() error {
	if l.file == nil {
		return ErrLogClosed
	}
	if err := l.file.sync(); err != nil {
		l.Logger.Error().Err(err).
			Str("path", l.file.path).
			Msgf("Fail to sync ddl log")
		return err
	}
	l.metrics.synced()
	return nil
}

// writeActionNoLock stores an action entry at a new position, stamping
// a uuid when the caller did not provide one. The entry is not synced; writeExecuteNoLock syncs it before pointing at it
func (l *DDLLog) writeActionNoLock(entry *Entry) (*memoryEntry, error) {
	if err := l.ensureOpenNoLock(); err != nil {
		return nil, err
	}
	if !entry.ActionType.Valid() {
		return nil, fmt.Errorf("action %d: %w", entry.ActionType, ErrUnknownAction)
	}
	ioSize, namePos := l.layout()
	if free := FreeSpace(entry, ioSize, namePos); free < 0 {
		return nil, fmt.Errorf("entry %s/%s is %d bytes too long: %w", entry.DB, entry.Name, -free, ErrEntryOverflow)
	}

	if entry.UUID == uuid.Nil {
		entry.UUID = uuid.New()
	}
	active := l.allocate()
	entry.Pos = active.pos
	entry.EntryType = EntryAction
	if err := l.writeEntryNoLock(entry); err != nil {
		l.release(active)
		entry.Pos = 0
		return nil, err
	}
	l.Logger.Trace().
		Uint32("entryPos", entry.Pos).
		Str("action", entry.ActionType.String()).
		Uint32("nextEntry", entry.NextEntry).
		Str("uuid", entry.UUID.String()).
		Msgf("Action entry written")
	return active, nil
}

// writeExecuteNoLock makes the chain starting at headPos eligible for recovery.
// Pending action entries are synced first so the execute entry never
// points at an entry that is not durable. When active is nil a new
// position is allocated
func (l *DDLLog) writeExecuteNoLock(headPos, condPos uint32, xid uint64, active *memoryEntry) (*memoryEntry, error) {
	if err := l.ensureOpenNoLock(); err != nil {
		return nil, err
	}
	if err := l.syncNoLock(); err != nil {
		return nil, err
	}

	allocated := active == nil
	if allocated {
		active = l.allocate()
	}
	entry := &Entry{
		Pos:       active.pos,
		EntryType: EntryExecute,
		NextEntry: headPos,
		XID:       xid,
		UniqueID:  packExecuteID(condPos, 0),
	}
	err := l.writeEntryNoLock(entry)
	if err == nil {
		err = l.syncNoLock()
	}
	if err != nil {
		if allocated {
			l.release(active)
		}
		return nil, err
	}
	l.Logger.Trace().
		Uint32("entryPos", entry.Pos).
		Uint32("nextEntry", headPos).
		Uint32("condPos", condPos).
		Msgf("Execute entry written")
	return active, nil
}

// IncrementPhase durably moves the action entry at pos to its next phase.
// PhaseRetired is returned once the entry has no phase left
func (l *DDLLog) IncrementPhase(pos uint32) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.incrementPhaseNoLock(pos)
}

// incrementPhaseNoLock durably moves the action entry at pos to its next phase
func (l *DDLLog) incrementPhaseNoLock(pos uint32) (uint8, error) {
	entry, err := l.readEntryNoLock(pos)
	if err != nil {
		return 0, err
	}
	switch entry.EntryType {
	case EntryIgnore:
		return PhaseRetired, nil
	case EntryAction:
	default:
		return 0, fmt.Errorf("entry %d is %s: %w", pos, entry.EntryType, ErrNotActionEntry)
	}

	next, retired := AdvancePhase(entry.ActionType, entry.Phase)
	if err := l.setPhaseNoLock(entry, next, retired); err != nil {
		return 0, err
	}
	return next, nil
}

// setPhaseNoLock durably records the phase of an action entry,
// or retires it
func (l *DDLLog) setPhaseNoLock(entry *Entry, phase uint8, retired bool) error {
	if retired {
		entry.EntryType = EntryIgnore
	} else {
		entry.Phase = phase
	}
	if err := l.writeEntryNoLock(entry); err != nil {
		return err
	}
	if err := l.syncNoLock(); err != nil {
		return err
	}
	l.metrics.phaseAdvanced(entry.ActionType)
	return nil
}

// DisableEntry retires the entry at pos without syncing.
// Callers disabling many entries sync once at the end
func (l *DDLLog) DisableEntry(pos uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disableEntryNoLock(pos)
}

// disableEntryNoLock retires the entry at pos without syncing
func (l *DDLLog) disableEntryNoLock(pos uint32) error {
	return l.updateEntryNoLock(pos, func(entry *Entry) error {
		entry.EntryType = EntryIgnore
		return nil
	})
}

// isExecuteEntryActiveNoLock reports whether pos holds an execute entry
// that was not retired
func (l *DDLLog) isExecuteEntryActiveNoLock(pos uint32) bool {
	entry, err := l.readEntryNoLock(pos)
	if err != nil {
		return false
	}
	return entry.EntryType == EntryExecute
}
