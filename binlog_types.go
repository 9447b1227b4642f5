package ddlog

import (
	bolt "go.etcd.io/bbolt"
)

const (
	// binlogFileName is the name of the bolt binlog file
	binlogFileName string = "ddl_binlog.db"

	// bucketCommittedName holds the committed transaction ids
	bucketCommittedName string = "committed_xids"

	// bucketStatementsName holds the emitted statements in order
	bucketStatementsName string = "statements"
)

// Binlog is what recovery needs from the replication log
type Binlog interface {
	// IsCommitted reports whether the transaction xid is
	// known committed in the replication log
	IsCommitted(xid uint64) bool

	// Emit appends a statement executed in database db
	Emit(db, statement string) error
}

// Statement is a statement written to the replication log
type Statement struct {
	// Sequence is the position of the statement in the log, starting at 1
	Sequence uint64

	// DB is the database the statement runs in
	DB string

	// Query is the statement text
	Query string
}

// BoltOptions configures NewBoltBinlog
type BoltOptions struct {
	// DataDir is the directory that will hold the binlog database. It's required
	DataDir string

	// Options hold all bolt options
	Options *bolt.Options
}

// BoltBinlog is a Binlog stored in a bolt database
type BoltBinlog struct {
	// dataDir is the directory holding the database file
	dataDir string

	// db allows us to manipulate the k/v database
	db *bolt.DB
}
