package ddlog

import (
	"fmt"
)

// NewState returns an empty State for a new statement
func (l *DDLLog) NewState() *State {
	return &State{log: l}
}

// IsActive reports whether the statement has a chain eligible for recovery
func (s *State) IsActive() bool {
	return s.executeEntry != nil
}

// ExecutePos returns the position of the execute entry, 0 if none
func (s *State) ExecutePos() uint32 {
	if s.executeEntry == nil {
		return 0
	}
	return s.executeEntry.pos
}

// MainPos returns the position of the entry the update methods act on, 0 if none
func (s *State) MainPos() uint32 {
	if s.mainEntry == nil {
		return 0
	}
	return s.mainEntry.pos
}

// headPos returns the position of the most recently linked entry, 0 if none
func (s *State) headPos() uint32 {
	if s.list == nil {
		return 0
	}
	return s.list.pos
}

// link adds the entry in front of the state list
func (s *State) link(active *memoryEntry) {
	active.nextActive = s.list
	s.list = active
}

// WriteEntry links a new action entry in front of the chain and points
// the execute entry at it. entry.Phase should be the first phase the
// statement is about to perform
func (s *State) WriteEntry(entry *Entry) error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.NextEntry = s.headPos()
	active, err := l.writeActionNoLock(entry)
	if err != nil {
		return err
	}
	s.link(active)
	s.mainEntry = active

	return s.writeExecuteNoLock()
}

// writeExecuteNoLock writes or updates the execute entry so it points
// at the head of the chain
func (s *State) writeExecuteNoLock() error {
	execute, err := s.log.writeExecuteNoLock(s.headPos(), s.masterChainPos, s.xid, s.executeEntry)
	if err != nil {
		return err
	}
	s.executeEntry = execute
	return nil
}

// StoreQuery records the statement text so recovery can give it to the
// action handlers. Text longer than one entry is split across a sub-chain
// of store query entries linked in front of the chain. The main entry is
// left unchanged
func (s *State) StoreQuery(query string) error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureOpenNoLock(); err != nil {
		return err
	}
	ioSize, namePos := l.layout()
	chunkSize := FreeSpace(&Entry{}, ioSize, namePos)

	var chunks []string
	for rest := query; ; {
		size := min(len(rest), chunkSize)
		chunks = append(chunks, rest[:size])
		rest = rest[size:]
		if rest == "" {
			break
		}
	}

	actives := make([]*memoryEntry, len(chunks))
	for i := range chunks {
		actives[i] = l.allocate()
	}
	release := func() {
		for _, active := range actives {
			l.release(active)
		}
	}

	// last chunk first so every chunk can point at its continuation
	for i := len(chunks) - 1; i >= 0; i-- {
		entry := &Entry{
			Pos:        actives[i].pos,
			EntryType:  EntryAction,
			ActionType: ActionStoreQuery,
			NextEntry:  s.headPos(),
			ExtraName:  chunks[i],
		}
		if i+1 < len(chunks) {
			entry.NextEntry = actives[i+1].pos
		}
		if i == 0 {
			entry.UniqueID = uint64(len(query))
		} else {
			entry.Flags = FlagQueryContinuation
		}
		if err := l.writeEntryNoLock(entry); err != nil {
			release()
			return err
		}
	}

	for i := len(actives) - 1; i >= 0; i-- {
		s.link(actives[i])
	}
	return s.writeExecuteNoLock()
}

// updateMainNoLock applies fn to the main action entry and syncs it
func (s *State) updateMainNoLock(fn func(entry *Entry) error) error {
	if s.mainEntry == nil {
		return ErrStateInactive
	}
	l := s.log
	err := l.updateEntryNoLock(s.mainEntry.pos, func(entry *Entry) error {
		if entry.EntryType != EntryAction {
			return fmt.Errorf("entry %d is %s: %w", entry.Pos, entry.EntryType, ErrNotActionEntry)
		}
		return fn(entry)
	})
	if err != nil {
		return err
	}
	return l.syncNoLock()
}

// UpdatePhase durably sets the phase of the main entry. A phase past the
// last one retires the entry. Going backward is refused
func (s *State) UpdatePhase(phase uint8) error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	return s.updateMainNoLock(func(entry *Entry) error {
		if phase < entry.Phase {
			return fmt.Errorf("entry %d from %d to %d: %w", entry.Pos, entry.Phase, phase, ErrPhaseRegression)
		}
		if isTerminal(entry.ActionType, phase) {
			entry.EntryType = EntryIgnore
			return nil
		}
		entry.Phase = phase
		l.metrics.phaseAdvanced(entry.ActionType)
		return nil
	})
}

// IncrementPhase durably moves the main entry to its next phase
func (s *State) IncrementPhase() (uint8, error) {
	if s.mainEntry == nil {
		return 0, ErrStateInactive
	}
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.incrementPhaseNoLock(s.mainEntry.pos)
}

// AddFlag durably sets flags on the main entry
func (s *State) AddFlag(flag Flag) error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	return s.updateMainNoLock(func(entry *Entry) error {
		entry.Flags |= flag
		return nil
	})
}

// UpdateUniqueID durably sets the unique id of the main entry
func (s *State) UpdateUniqueID(id uint64) error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	return s.updateMainNoLock(func(entry *Entry) error {
		entry.UniqueID = id
		return nil
	})
}

// UpdateXID durably records on the execute entry the replication
// transaction that logged the statement, so recovery can skip the
// chain once the transaction is known committed
func (s *State) UpdateXID(xid uint64) error {
	if s.executeEntry == nil {
		return ErrStateInactive
	}
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	s.xid = xid
	err := l.updateEntryNoLock(s.executeEntry.pos, func(entry *Entry) error {
		entry.XID = xid
		return nil
	})
	if err != nil {
		return err
	}
	return l.syncNoLock()
}

// LinkChains makes the chain of s conditional on the chain of master:
// as long as the execute entry of master is active, recovery retires
// the chain of s without replaying it
func (s *State) LinkChains(master *State) error {
	if master.executeEntry == nil {
		return ErrStateInactive
	}
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	s.masterChainPos = master.executeEntry.pos
	if s.executeEntry == nil {
		return nil
	}
	err := l.updateEntryNoLock(s.executeEntry.pos, func(entry *Entry) error {
		entry.UniqueID = packExecuteID(s.masterChainPos, entry.RetryCount())
		return nil
	})
	if err != nil {
		return err
	}
	return l.syncNoLock()
}

// DisableEntry durably retires the main entry
func (s *State) DisableEntry() error {
	if s.mainEntry == nil {
		return ErrStateInactive
	}
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.disableEntryNoLock(s.mainEntry.pos); err != nil {
		return err
	}
	return l.syncNoLock()
}

// Complete retires the execute entry and gives every position back to
// the allocator. On error nothing is released: the chain stays eligible
// for recovery and its positions must not be reused
func (s *State) Complete() error {
	l := s.log
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.executeEntry != nil {
		if err := l.disableEntryNoLock(s.executeEntry.pos); err != nil {
			l.Logger.Warn().Err(err).
				Uint32("entryPos", s.executeEntry.pos).
				Msgf("Fail to disable ddl log execute entry")
			return err
		}
		if err := l.syncNoLock(); err != nil {
			return err
		}
	}
	s.releaseNoLock()
	return nil
}

// releaseNoLock gives every position of the state back to the allocator
func (s *State) releaseNoLock() {
	l := s.log
	for active := s.list; active != nil; {
		next := active.nextActive
		l.release(active)
		active = next
	}
	if s.executeEntry != nil {
		l.release(s.executeEntry)
	}
	s.list = nil
	s.mainEntry = nil
	s.executeEntry = nil
	s.masterChainPos = 0
	s.xid = 0
}

// Revert undoes the statement by replaying its chain inline, the same way
// recovery would after a crash, then completes the state. When replay fails
// the chain is left for the next recovery
func (s *State) Revert(handler ActionHandler, binlog Binlog) error {
	if s.list == nil {
		return s.Complete()
	}

	rc := newRecoveryContext(binlog)
	defer rc.release()

	if err := s.log.executeChain(rc, handler, s.list.pos); err != nil {
		s.log.Logger.Error().Err(err).
			Uint32("executePos", s.ExecutePos()).
			Msgf("Fail to revert ddl log chain, it will be replayed at next recovery")
		return err
	}
	return s.Complete()
}
