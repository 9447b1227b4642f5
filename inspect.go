package ddlog

import (
	"fmt"
	"io"
)

// Dump is the content of a log file as read by Inspect
type Dump struct {
	// IOSize is the block size found in the header
	IOSize uint16

	// NamePos is the name offset found in the header
	NamePos uint16

	// BackupDone reports whether recovery already took its backup
	BackupDone bool

	// Entries holds every readable entry in position order
	Entries []*Entry

	// Invalid holds the positions of entries that could not be read
	Invalid []uint32
}

// Inspect reads a log file without modifying it
func Inspect(fs FileSystem, path string) (*Dump, error) {
	file, entries, err := openBlockFile(fs, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.close()
	}()

	dump := &Dump{
		IOSize:     file.header.ioSize,
		NamePos:    file.header.namePos,
		BackupDone: file.header.backupDone,
	}
	for pos := uint32(1); pos <= entries; pos++ {
		block, err := file.read(pos)
		if err != nil {
			dump.Invalid = append(dump.Invalid, pos)
			continue
		}
		entry, err := decodeEntry(block, pos, file.header.namePos)
		if err != nil {
			dump.Invalid = append(dump.Invalid, pos)
			continue
		}
		dump.Entries = append(dump.Entries, entry)
	}
	return dump, nil
}

// Active returns the entries recovery would still consider
func (d *Dump) Active() []*Entry {
	var active []*Entry
	for _, entry := range d.Entries {
		if entry.IsActive() {
			active = append(active, entry)
		}
	}
	return active
}

// Write prints the dump in a human readable form.
// Retired and empty entries are skipped unless all is true
func (d *Dump) Write(w io.Writer, all bool) error {
	if _, err := fmt.Fprintf(w, "io_size: %d name_pos: %d backup_done: %t entries: %d\n", d.IOSize, d.NamePos, d.BackupDone, len(d.Entries)+len(d.Invalid)); err != nil {
		return err
	}
	entries := d.Entries
	if !all {
		entries = d.Active()
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, entry.String()); err != nil {
			return err
		}
	}
	for _, pos := range d.Invalid {
		if _, err := fmt.Fprintf(w, "pos: %d unreadable\n", pos); err != nil {
			return err
		}
	}
	return nil
}
