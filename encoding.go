package ddlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// DefaultIOSize is the size of one block
	DefaultIOSize uint16 = 4096

	// DefaultNamePos is where variable length names begin within a block
	DefaultNamePos uint16 = 56

	// headerSize is magic + io_size + name_pos + backup flag
	headerSize = 4 + 2 + 2 + 1

	headerIOSizePos  = 4
	headerNamePosPos = 6
	headerBackupPos  = 8

	entryTypePos   = 0
	actionTypePos  = 1
	phasePos       = 2
	nextEntryPos   = 4
	flagsPos       = 8
	xidPos         = 10
	uuidPos        = 18
	uniqueIDPos    = 34
	fixedEntrySize = 42

	// entryNameCount is the number of variable strings in an entry
	entryNameCount = 8

	// nameOverhead is the length prefix plus the terminator of one name
	nameOverhead = 3

	// retryBits is how many low bits of an execute entry unique_id hold the retry count
	retryBits = 8
	retryMask = 1<<retryBits - 1
)

// fileMagic identifies the current on-disk format
var fileMagic = [4]byte{0xFE, 0xFE, 0x0B, 0x02}

// header is block 0 of the log file
type header struct {
	ioSize     uint16
	namePos    uint16
	backupDone bool
}

// minIOSize returns the smallest block able to hold eight empty names
func minIOSize(namePos uint16) int {
	return int(namePos) + entryNameCount*nameOverhead + nameOverhead
}

// validLayout checks io_size and name_pos read from a header or options
func validLayout(ioSize, namePos uint16) bool {
	return namePos >= fixedEntrySize && int(ioSize) >= minIOSize(namePos)
}

// encodeHeader permits to transform the header into a block
func encodeHeader(h header) []byte {
	block := make([]byte, h.ioSize)
	copy(block, fileMagic[:])
	binary.LittleEndian.PutUint16(block[headerIOSizePos:], h.ioSize)
	binary.LittleEndian.PutUint16(block[headerNamePosPos:], h.namePos)
	if h.backupDone {
		block[headerBackupPos] = 1
	}
	return block
}

// decodeHeader permits to transform back block 0 into a header.
// ErrLogFormat is returned when the magic does not match
func decodeHeader(data []byte) (header, error) {
	if len(data) < headerSize {
		return header{}, fmt.Errorf("header too short: %w", ErrLogFormat)
	}
	if !bytes.Equal(data[:len(fileMagic)], fileMagic[:]) {
		return header{}, fmt.Errorf("bad magic %x: %w", data[:len(fileMagic)], ErrLogFormat)
	}
	h := header{
		ioSize:     binary.LittleEndian.Uint16(data[headerIOSizePos:]),
		namePos:    binary.LittleEndian.Uint16(data[headerNamePosPos:]),
		backupDone: data[headerBackupPos] != 0,
	}
	if !validLayout(h.ioSize, h.namePos) {
		return header{}, fmt.Errorf("io size %d name pos %d: %w", h.ioSize, h.namePos, ErrLogFormat)
	}
	return h, nil
}

// FreeSpace returns how many bytes are left in a block once the entry is
// encoded. It always keeps room for one more length prefix and terminator
// so a negative value means the entry cannot be written
func FreeSpace(entry *Entry, ioSize, namePos uint16) int {
	used := int(namePos) + nameOverhead
	for _, name := range entry.names() {
		used += nameOverhead + len(*name)
	}
	return int(ioSize) - used
}

// encodeEntry permits to transform an entry into a block of ioSize bytes
func encodeEntry(entry *Entry, ioSize, namePos uint16) ([]byte, error) {
	if free := FreeSpace(entry, ioSize, namePos); free < 0 {
		return nil, fmt.Errorf("entry %s/%s is %d bytes too long: %w", entry.DB, entry.Name, -free, ErrEntryOverflow)
	}

	block := make([]byte, ioSize)
	block[entryTypePos] = byte(entry.EntryType)
	block[actionTypePos] = byte(entry.ActionType)
	block[phasePos] = entry.Phase
	binary.LittleEndian.PutUint32(block[nextEntryPos:], entry.NextEntry)
	binary.LittleEndian.PutUint16(block[flagsPos:], uint16(entry.Flags))
	binary.LittleEndian.PutUint64(block[xidPos:], entry.XID)
	copy(block[uuidPos:uuidPos+len(entry.UUID)], entry.UUID[:])
	binary.LittleEndian.PutUint64(block[uniqueIDPos:], entry.UniqueID)

	offset := int(namePos)
	for _, name := range entry.names() {
		binary.LittleEndian.PutUint16(block[offset:], uint16(len(*name)))
		offset += 2
		offset += copy(block[offset:], *name)
		// terminator, already zero
		offset++
	}
	return block, nil
}

// decodeEntry permits to transform back a block into an entry.
// Names are copied out of the block
func decodeEntry(block []byte, pos uint32, namePos uint16) (*Entry, error) {
	if len(block) < minIOSize(namePos) {
		return nil, fmt.Errorf("block of %d bytes at %d: %w", len(block), pos, ErrReadEntry)
	}

	entry := &Entry{
		Pos:        pos,
		EntryType:  EntryType(block[entryTypePos]),
		ActionType: ActionType(block[actionTypePos]),
		Phase:      block[phasePos],
		NextEntry:  binary.LittleEndian.Uint32(block[nextEntryPos:]),
		Flags:      Flag(binary.LittleEndian.Uint16(block[flagsPos:])),
		XID:        binary.LittleEndian.Uint64(block[xidPos:]),
		UniqueID:   binary.LittleEndian.Uint64(block[uniqueIDPos:]),
	}
	copy(entry.UUID[:], block[uuidPos:uuidPos+len(entry.UUID)])

	offset := int(namePos)
	for _, name := range entry.names() {
		if offset+2 > len(block) {
			return nil, fmt.Errorf("name header out of block at %d: %w", pos, ErrReadEntry)
		}
		length := int(binary.LittleEndian.Uint16(block[offset:]))
		offset += 2
		if offset+length+1 > len(block) {
			return nil, fmt.Errorf("name of %d bytes out of block at %d: %w", length, pos, ErrReadEntry)
		}
		*name = string(block[offset : offset+length])
		offset += length + 1
	}
	return entry, nil
}
