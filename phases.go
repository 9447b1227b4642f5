package ddlog

// replayRule is the order in which the phases of an action entry
// are undone or completed during recovery
type replayRule uint8

const (
	// replayForward runs phases in increasing order until the phase count
	replayForward replayRule = iota

	// replayReverse unwinds phases already done, down to the first one
	replayReverse

	// replayKeep leaves the entry active. Store query chunks are only
	// read during replay and must survive a crash in the middle of it
	replayKeep
)

// actionPhases holds the phase count of every action type
var actionPhases = [actionLast]uint8{
	ActionUnknown:           0,
	ActionPartitionDelete:   1,
	ActionPartitionRename:   1,
	ActionPartitionReplace:  replacePhaseEnd,
	ActionPartitionExchange: exchangePhaseEnd,
	ActionRenameTable:       renamePhaseEnd,
	ActionRenameView:        1,
	ActionDropInit:          1,
	ActionDropTable:         dropPhaseEnd,
	ActionDropView:          dropViewPhaseEnd,
	ActionDropTrigger:       1,
	ActionDropDB:            dropDBPhaseEnd,
	ActionCreateTable:       createTablePhaseEnd,
	ActionCreateView:        createPhaseEnd,
	ActionDeleteTmpFile:     1,
	ActionCreateTrigger:     createPhaseEnd,
	ActionAlterTable:        alterPhaseEnd,
	ActionStoreQuery:        1,
}

// actionNames holds the human readable name of every action type
var actionNames = [actionLast]string{
	ActionUnknown:           "Unknown",
	ActionPartitionDelete:   "partitioning delete",
	ActionPartitionRename:   "partitioning rename",
	ActionPartitionReplace:  "partitioning replace",
	ActionPartitionExchange: "partitioning exchange",
	ActionRenameTable:       "rename table",
	ActionRenameView:        "rename view",
	ActionDropInit:          "initialize drop table",
	ActionDropTable:         "drop table",
	ActionDropView:          "drop view",
	ActionDropTrigger:       "drop trigger",
	ActionDropDB:            "drop database",
	ActionCreateTable:       "create table",
	ActionCreateView:        "create view",
	ActionDeleteTmpFile:     "delete tmp file",
	ActionCreateTrigger:     "create trigger",
	ActionAlterTable:        "alter table",
	ActionStoreQuery:        "store query",
}

// actionReplay holds the replay rule of every action type
var actionReplay = [actionLast]replayRule{
	ActionPartitionExchange: replayReverse,
	ActionStoreQuery:        replayKeep,
}

// Valid reports whether the action type is known
func (a ActionType) Valid() bool {
	return a > ActionUnknown && a < actionLast
}

// PhaseCount returns how many phases the action type has
func (a ActionType) PhaseCount() uint8 {
	if a >= actionLast {
		return 0
	}
	return actionPhases[a]
}

// String return a human readable action type
func (a ActionType) String() string {
	if a >= actionLast {
		return actionNames[ActionUnknown]
	}
	return actionNames[a]
}

// AdvancePhase returns the phase following the provided one.
// When the action has no more phases, retired is true and next is PhaseRetired
func AdvancePhase(action ActionType, phase uint8) (next uint8, retired bool) {
	if phase == PhaseRetired {
		return PhaseRetired, true
	}
	next = phase + 1
	if next >= action.PhaseCount() {
		return PhaseRetired, true
	}
	return next, false
}

// isTerminal reports whether the entry has nothing left to do
func isTerminal(action ActionType, phase uint8) bool {
	return phase >= action.PhaseCount()
}

// remainingPhases returns the phases following the provided one, in the
// order recovery walks them once the action handler ran for that phase
func remainingPhases(action ActionType, phase uint8) []uint8 {
	if isTerminal(action, phase) {
		return nil
	}
	var phases []uint8
	switch actionReplay[action] {
	case replayReverse:
		for p := int(phase) - 1; p >= 0; p-- {
			phases = append(phases, uint8(p))
		}
	case replayForward:
		for p := phase + 1; p < action.PhaseCount(); p++ {
			phases = append(phases, p)
		}
	}
	return phases
}
