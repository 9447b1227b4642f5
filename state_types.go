package ddlog

// State is the short lived handle a statement uses to log its steps.
// It is not persisted itself and must not be shared between statements
type State struct {
	// log is the ddl log the entries are written to
	log *DDLLog

	// list is the most recently linked entry. Entries are linked at the
	// front so a revert walks them in reverse creation order
	list *memoryEntry

	// mainEntry is the entry UpdatePhase, AddFlag and UpdateUniqueID act on
	mainEntry *memoryEntry

	// executeEntry makes the chain eligible for recovery
	executeEntry *memoryEntry

	// masterChainPos is the conditional position written in executeEntry
	masterChainPos uint32

	// xid is the replication transaction id written in executeEntry
	xid uint64
}
