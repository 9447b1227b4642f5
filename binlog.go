package ddlog

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// NewBoltBinlog opens or creates the binlog database in options.DataDir
func NewBoltBinlog(options BoltOptions) (*BoltBinlog, error) {
	if options.DataDir == "" {
		return nil, ErrDataDirRequired
	}
	if options.Options == nil {
		options.Options = bolt.DefaultOptions
	}
	if err := createDirectoryIfNotExist(options.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("fail to create directory %s: %w", options.DataDir, err)
	}

	db, err := bolt.Open(filepath.Join(options.DataDir, binlogFileName), 0600, options.Options)
	if err != nil {
		return nil, err
	}

	binlog := &BoltBinlog{
		dataDir: options.DataDir,
		db:      db,
	}
	if !options.Options.ReadOnly {
		if err := binlog.initializeBuckets(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return binlog, nil
}

// initializeBuckets creates the buckets used by the binlog
func (b *BoltBinlog) initializeBuckets() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketCommittedName, bucketStatementsName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close will close bolt database
func (b *BoltBinlog) Close() error {
	return b.db.Close()
}

// Commit records the transaction xid as committed
func (b *BoltBinlog) Commit(xid uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCommittedName)).Put(encodeUint64ToBytes(xid), []byte{1})
	})
}

// IsCommitted reports whether the transaction xid was committed.
// A closed database reports nothing as committed
func (b *BoltBinlog) IsCommitted(xid uint64) bool {
	committed := false
	_ = b.db.View(func(tx *bolt.Tx) error {
		committed = tx.Bucket([]byte(bucketCommittedName)).Get(encodeUint64ToBytes(xid)) != nil
		return nil
	})
	return committed
}

// Emit appends a statement after the last one
func (b *BoltBinlog) Emit(db, statement string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketStatementsName))
		sequence, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(encodeUint64ToBytes(sequence), encodeStatement(db, statement))
	})
}

// Statements returns every emitted statement in order
func (b *BoltBinlog) Statements() ([]Statement, error) {
	var statements []Statement
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketStatementsName)).ForEach(func(k, v []byte) error {
			statement, err := decodeStatement(v)
			if err != nil {
				return err
			}
			statement.Sequence = decodeUint64ToBytes(k)
			statements = append(statements, statement)
			return nil
		})
	})
	return statements, err
}

// encodeUint64ToBytes returns a big endian key so bolt keeps them sorted
func encodeUint64ToBytes(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)
	return buffer
}

// decodeUint64ToBytes is the reverse of encodeUint64ToBytes
func decodeUint64ToBytes(value []byte) uint64 {
	return binary.BigEndian.Uint64(value)
}

// encodeStatement stores db and query as two length prefixed strings
func encodeStatement(db, query string) []byte {
	buffer := make([]byte, 0, 2+len(db)+4+len(query))
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(db)))
	buffer = append(buffer, db...)
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(query)))
	return append(buffer, query...)
}

// decodeStatement is the reverse of encodeStatement
func decodeStatement(data []byte) (Statement, error) {
	if len(data) < 2 {
		return Statement{}, ErrStatementFormat
	}
	dbLen := int(binary.LittleEndian.Uint16(data))
	data = data[2:]
	if len(data) < dbLen+4 {
		return Statement{}, ErrStatementFormat
	}
	statement := Statement{DB: string(data[:dbLen])}
	data = data[dbLen:]
	queryLen := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if len(data) != queryLen {
		return Statement{}, ErrStatementFormat
	}
	statement.Query = string(data)
	return statement, nil
}
