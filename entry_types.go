package ddlog

import (
	"fmt"

	"github.com/google/uuid"
)

// EntryType is the one byte tag stored at the beginning of every block
type EntryType uint8

const (
	// EntryUnknown is found in blocks that were never written
	EntryUnknown EntryType = 0

	// EntryExecute marks a chain of action entries as eligible for recovery
	EntryExecute EntryType = 'e'

	// EntryAction is one phase bearing step of a metadata operation
	EntryAction EntryType = 'l'

	// EntryIgnore is the tombstone written over retired entries
	EntryIgnore EntryType = 'i'
)

// String return a human readable entry type
func (e EntryType) String() string {
	switch e {
	case EntryExecute:
		return "execute"
	case EntryAction:
		return "action"
	case EntryIgnore:
		return "ignore"
	}
	return "unknown"
}

// ActionType identifies what physical effect an action entry guards.
// It indexes both actionPhases and actionNames
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionPartitionDelete
	ActionPartitionRename
	ActionPartitionReplace
	ActionPartitionExchange
	ActionRenameTable
	ActionRenameView
	ActionDropInit
	ActionDropTable
	ActionDropView
	ActionDropTrigger
	ActionDropDB
	ActionCreateTable
	ActionCreateView
	ActionDeleteTmpFile
	ActionCreateTrigger
	ActionAlterTable
	ActionStoreQuery

	// actionLast must stay the last value
	actionLast
)

// Phases of ActionPartitionReplace
const (
	ReplacePhaseDelete uint8 = iota
	ReplacePhaseRename
	replacePhaseEnd
)

// Phases of ActionPartitionExchange. They are unwound in reverse order
// during recovery
const (
	ExchangePhaseNameToTemp uint8 = iota
	ExchangePhaseFromToName
	ExchangePhaseTempToFrom
	exchangePhaseEnd
)

// Phases of ActionRenameTable
const (
	RenamePhaseTable uint8 = iota
	RenamePhaseStats
	RenamePhaseTrigger
	RenamePhaseBinlog
	renamePhaseEnd
)

// Phases of ActionDropTable
const (
	DropPhaseTable uint8 = iota
	DropPhaseTrigger
	DropPhaseBinlog
	dropPhaseEnd
)

// Phases of ActionDropView
const (
	DropViewPhaseFile uint8 = iota
	DropViewPhaseBinlog
	dropViewPhaseEnd
)

// Phases of ActionDropDB
const (
	DropDBPhaseInit uint8 = iota
	DropDBPhaseBinlog
	dropDBPhaseEnd
)

// Phases of ActionCreateTable
const (
	CreateTablePhaseInit uint8 = iota
	CreateTablePhaseLog
	createTablePhaseEnd
)

// Phases of ActionCreateView and ActionCreateTrigger
const (
	CreatePhaseNoOld uint8 = iota
	CreatePhaseDeleteCopy
	CreatePhaseOldCopied
	createPhaseEnd
)

// Phases of ActionAlterTable
const (
	AlterPhaseInit uint8 = iota
	AlterPhaseRenameFailed
	AlterPhaseInplaceCopied
	AlterPhaseInplace
	AlterPhasePrepareInplace
	AlterPhaseCreated
	AlterPhaseCopied
	AlterPhaseOldRenamed
	AlterPhaseUpdateTriggers
	AlterPhaseUpdateStats
	AlterPhaseUpdateBinlog
	alterPhaseEnd
)

// PhaseRetired is reported instead of a phase once an entry
// went through all its phases and has been tagged EntryIgnore
const PhaseRetired uint8 = 0xFF

// Flag is an action specific bitset
type Flag uint16

const (
	// FlagAlterRenameFrom is set once the original table has been renamed away
	FlagAlterRenameFrom Flag = 1 << iota

	// FlagAlterEngineChanged is set when the alter switches storage engine
	FlagAlterEngineChanged

	// FlagOnlyFrm tells the handler only the definition file exists
	FlagOnlyFrm

	// FlagAlterPartition is set when the alter touches partitions
	FlagAlterPartition

	// FlagUpdateStats asks the handler to also update statistics
	FlagUpdateStats

	// FlagQueryContinuation marks every store query chunk but the first one
	FlagQueryContinuation Flag = 1 << 15
)

// Has reports whether all bits of f are set
func (flags Flag) Has(f Flag) bool {
	return flags&f == f
}

// Entry is the decoded representation of one log block.
// Entries returned by the log own their strings
type Entry struct {
	// Pos is the 1-based position of the block, 0 when not written yet
	Pos uint32

	// EntryType tells if it's an action, execute or retired entry
	EntryType EntryType

	// ActionType is the kind of step, only meaningful for action entries
	ActionType ActionType

	// Phase is the current step within ActionType phases
	Phase uint8

	// NextEntry is the position of the next action entry of the chain,
	// or the head of the chain for execute entries
	NextEntry uint32

	// Flags are action specific
	Flags Flag

	// XID is the replication transaction id correlated with this chain
	XID uint64

	// UUID is an opaque correlation token. A random one is
	// stamped when an action entry is written without it
	UUID uuid.UUID

	// UniqueID is action specific: table version, query length or,
	// for execute entries, retry count and conditional position
	UniqueID uint64

	HandlerName     string
	DB              string
	Name            string
	FromHandlerName string
	FromDB          string
	FromName        string
	TmpName         string
	ExtraName       string
}

// names returns the variable strings in their on-disk order
func (e *Entry) names() [entryNameCount]*string {
	return [entryNameCount]*string{
		&e.HandlerName,
		&e.DB,
		&e.Name,
		&e.FromHandlerName,
		&e.FromDB,
		&e.FromName,
		&e.TmpName,
		&e.ExtraName,
	}
}

// IsActive reports whether recovery would still consider this entry
func (e *Entry) IsActive() bool {
	return e.EntryType == EntryAction || e.EntryType == EntryExecute
}

// RetryCount returns the retry counter packed into an execute entry
func (e *Entry) RetryCount() uint8 {
	return uint8(e.UniqueID & retryMask)
}

// CondPos returns the conditional entry position packed into an execute entry
func (e *Entry) CondPos() uint32 {
	return uint32(e.UniqueID >> retryBits)
}

// String is used by the logger and the dump tool
func (e *Entry) String() string {
	if e.EntryType == EntryExecute {
		return fmt.Sprintf("pos: %d type: %s next: %d retry: %d cond: %d xid: %d", e.Pos, e.EntryType, e.NextEntry, e.RetryCount(), e.CondPos(), e.XID)
	}
	return fmt.Sprintf("pos: %d type: %s action: %s phase: %d next: %d flags: %#x db: %q name: %q from: %q.%q tmp: %q",
		e.Pos, e.EntryType, e.ActionType, e.Phase, e.NextEntry, uint16(e.Flags), e.DB, e.Name, e.FromDB, e.FromName, e.TmpName)
}

// packExecuteID builds the unique_id of an execute entry
func packExecuteID(condPos uint32, retry uint8) uint64 {
	return uint64(condPos)<<retryBits | uint64(retry)
}
