package ddlog

import (
	"errors"
	"testing"

	"github.com/jackc/fake"
	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	assert := assert.New(t)

	t.Run("inactive", func(t *testing.T) {
		l := recoveredLogSetup(t, NewMemoryFileSystem())
		s := l.NewState()
		assert.False(s.IsActive())
		assert.Equal(uint32(0), s.ExecutePos())
		assert.Equal(uint32(0), s.MainPos())
		assert.ErrorIs(s.UpdatePhase(1), ErrStateInactive)
		assert.ErrorIs(s.AddFlag(FlagOnlyFrm), ErrStateInactive)
		assert.ErrorIs(s.UpdateUniqueID(1), ErrStateInactive)
		assert.ErrorIs(s.UpdateXID(1), ErrStateInactive)
		assert.ErrorIs(s.DisableEntry(), ErrStateInactive)
		_, err := s.IncrementPhase()
		assert.ErrorIs(err, ErrStateInactive)
		assert.ErrorIs(s.LinkChains(l.NewState()), ErrStateInactive)
		assert.Nil(s.Complete())
	})

	t.Run("chain_links_in_front", func(t *testing.T) {
		l := recoveredLogSetup(t, NewMemoryFileSystem())
		s := l.NewState()

		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "a"}))
		first := s.MainPos()
		execute := s.ExecutePos()
		assert.Equal(uint32(1), first)
		assert.Equal(uint32(2), execute)

		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionDropTable, Name: "b"}))
		second := s.MainPos()
		assert.Equal(uint32(3), second)
		// the execute entry is reused
		assert.Equal(execute, s.ExecutePos())

		entry, err := l.ReadEntry(second)
		assert.Nil(err)
		assert.Equal(first, entry.NextEntry)

		entry, err = l.ReadEntry(first)
		assert.Nil(err)
		assert.Equal(uint32(0), entry.NextEntry)

		entry, err = l.ReadEntry(execute)
		assert.Nil(err)
		assert.Equal(second, entry.NextEntry)
		assert.Equal(uint8(0), entry.RetryCount())
		assert.Equal(uint32(0), entry.CondPos())
	})

	t.Run("update_main", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionAlterTable, Phase: AlterPhaseInit, Name: "t1"}))

		assert.Nil(s.UpdatePhase(AlterPhaseCreated))
		assert.Nil(s.AddFlag(FlagAlterRenameFrom))
		assert.Nil(s.AddFlag(FlagAlterEngineChanged))
		assert.Nil(s.UpdateUniqueID(1234))
		phase, err := s.IncrementPhase()
		assert.Nil(err)
		assert.Equal(AlterPhaseCopied, phase)

		// everything is durable
		fs.Crash()
		entry, err := l.ReadEntry(s.MainPos())
		assert.Nil(err)
		assert.Equal(AlterPhaseCopied, entry.Phase)
		assert.True(entry.Flags.Has(FlagAlterRenameFrom | FlagAlterEngineChanged))
		assert.False(entry.Flags.Has(FlagOnlyFrm))
		assert.Equal(uint64(1234), entry.UniqueID)

		assert.ErrorIs(s.UpdatePhase(AlterPhaseInit), ErrPhaseRegression)
	})

	t.Run("update_phase_terminal_retires", func(t *testing.T) {
		l := recoveredLogSetup(t, NewMemoryFileSystem())
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionCreateTable, Name: "t1"}))
		assert.Nil(s.UpdatePhase(createTablePhaseEnd))

		entry, err := l.ReadEntry(s.MainPos())
		assert.Nil(err)
		assert.Equal(EntryIgnore, entry.EntryType)
		assert.ErrorIs(s.UpdatePhase(CreateTablePhaseLog), ErrNotActionEntry)
	})

	t.Run("disable_main", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionDropTrigger, Name: "tr1"}))
		assert.Nil(s.DisableEntry())

		fs.Crash()
		entry, err := l.ReadEntry(s.MainPos())
		assert.Nil(err)
		assert.Equal(EntryIgnore, entry.EntryType)
	})

	t.Run("update_xid", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionDropDB, DB: "test"}))
		assert.Nil(s.UpdateXID(77))

		// later rewrites of the execute entry keep the xid
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionDropTable, DB: "test", Name: "t1"}))
		fs.Crash()
		entry, err := l.ReadEntry(s.ExecutePos())
		assert.Nil(err)
		assert.Equal(uint64(77), entry.XID)
	})

	t.Run("link_chains", func(t *testing.T) {
		l := recoveredLogSetup(t, NewMemoryFileSystem())
		master := l.NewState()
		assert.Nil(master.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "a"}))

		s := l.NewState()
		assert.Nil(s.LinkChains(master))
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "b"}))
		entry, err := l.ReadEntry(s.ExecutePos())
		assert.Nil(err)
		assert.Equal(master.ExecutePos(), entry.CondPos())

		other := l.NewState()
		assert.Nil(other.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "c"}))
		assert.Nil(other.LinkChains(master))
		entry, err = l.ReadEntry(other.ExecutePos())
		assert.Nil(err)
		assert.Equal(master.ExecutePos(), entry.CondPos())
	})

	t.Run("complete_releases", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "a"}))
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "b"}))
		execute := s.ExecutePos()

		assert.Nil(s.Complete())
		assert.False(s.IsActive())
		assert.Equal(0, l.usedEntries)
		assert.Equal(3, l.freeCount())

		fs.Crash()
		entry, err := l.ReadEntry(execute)
		assert.Nil(err)
		assert.Equal(EntryIgnore, entry.EntryType)

		// released positions are reused before growing
		s = l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "c"}))
		assert.Equal(uint32(3), l.NumEntries())
	})

	t.Run("complete_failure_keeps_positions", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "a"}))

		fs.SetSyncError(errors.New("io"))
		assert.ErrorIs(s.Complete(), ErrSync)
		fs.SetSyncError(nil)
		assert.True(s.IsActive())
		assert.Equal(2, l.usedEntries)
		assert.Equal(0, l.freeCount())
	})

	t.Run("sync_failure_before_execute", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()

		fs.SetSyncError(errors.New("io"))
		assert.ErrorIs(s.WriteEntry(&Entry{ActionType: ActionRenameTable, Name: "a"}), ErrSync)
		fs.SetSyncError(nil)
		assert.False(s.IsActive())
	})

	t.Run("store_query", func(t *testing.T) {
		l := logSetup(t, Options{FileSystem: NewMemoryFileSystem(), IOSize: 256})
		_, err := l.Recover(nil, nil)
		assert.Nil(err)

		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionCreateTable, Name: "t1"}))
		mainPos := s.MainPos()

		chunk := l.MaxNameSpace()
		query := fake.CharactersN(chunk*2 + 10)
		assert.Nil(s.StoreQuery(query))
		assert.Equal(mainPos, s.MainPos())

		execute, err := l.ReadEntry(s.ExecutePos())
		assert.Nil(err)

		var (
			parts []string
			pos   = execute.NextEntry
		)
		for i := 0; i < 3; i++ {
			entry, err := l.ReadEntry(pos)
			assert.Nil(err)
			assert.Equal(ActionStoreQuery, entry.ActionType)
			assert.Equal(i > 0, entry.Flags.Has(FlagQueryContinuation))
			if i == 0 {
				assert.Equal(uint64(len(query)), entry.UniqueID)
			}
			parts = append(parts, entry.ExtraName)
			pos = entry.NextEntry
		}
		assert.Equal(mainPos, pos)
		assert.Len(parts[0], chunk)
		assert.Len(parts[2], 10)
		assert.Equal(query, parts[0]+parts[1]+parts[2])
	})

	t.Run("store_query_write_error", func(t *testing.T) {
		fs := NewMemoryFileSystem()
		l := recoveredLogSetup(t, fs)
		s := l.NewState()
		assert.Nil(s.WriteEntry(&Entry{ActionType: ActionCreateTable, Name: "t1"}))

		fs.SetWriteError(errors.New("disk full"))
		assert.Error(s.StoreQuery("CREATE TABLE t1 (a int)"))
		fs.SetWriteError(nil)
		assert.Equal(2, l.usedEntries)
		assert.Equal(1, l.freeCount())
	})
}
