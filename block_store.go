package ddlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// osFile adds Size to os.File
type osFile struct {
	*os.File
}

// Size returns the current size of the file in bytes
func (f osFile) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// OpenFile opens an existing file in read/write mode
func (OSFileSystem) OpenFile(path string) (File, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrLogNotFound)
		}
		return nil, err
	}
	return osFile{file}, nil
}

// CreateFile creates or truncates a file and its parent directory
func (OSFileSystem) CreateFile(path string) (File, error) {
	if err := createDirectoryIfNotExist(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("fail to create directory %s: %w", filepath.Dir(path), err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0660)
	if err != nil {
		return nil, err
	}
	return osFile{file}, nil
}

// Remove deletes a file. A missing file is not an error
func (OSFileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CopyFile durably copies a file through a temporary file
// that is then renamed over the destination
func (OSFileSystem) CopyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	tmp := to + ".tmp"
	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0660)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err = dst.Sync(); err != nil {
		_ = dst.Close()
		return err
	}
	if err = dst.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, to)
}

// openBlockFile opens an existing log and reads its header.
// It returns the number of entries the file can hold
func openBlockFile(fs FileSystem, path string) (*blockFile, uint32, error) {
	file, err := fs.OpenFile(path)
	if err != nil {
		return nil, 0, err
	}

	data := make([]byte, headerSize)
	if n, err := file.ReadAt(data, 0); n != headerSize {
		_ = file.Close()
		return nil, 0, fmt.Errorf("read header of %s: %v: %w", path, err, ErrLogFormat)
	}
	h, err := decodeHeader(data)
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}

	size, err := file.Size()
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	var entries uint32
	if blocks := size / int64(h.ioSize); blocks > 1 {
		entries = uint32(blocks - 1)
	}
	return &blockFile{path: path, file: file, header: h}, entries, nil
}

// createBlockFile creates an empty log with the provided header
func createBlockFile(fs FileSystem, path string, h header) (*blockFile, error) {
	file, err := fs.CreateFile(path)
	if err != nil {
		return nil, err
	}
	b := &blockFile{path: path, file: file, header: h}
	if err := b.writeHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := b.sync(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return b, nil
}

// read returns the block stored at pos
func (b *blockFile) read(pos uint32) ([]byte, error) {
	if pos == 0 {
		return nil, fmt.Errorf("read at %d: %w", pos, ErrInvalidPosition)
	}
	block := make([]byte, b.header.ioSize)
	n, err := b.file.ReadAt(block, int64(pos)*int64(b.header.ioSize))
	if n != len(block) {
		return nil, fmt.Errorf("read at %d: %v: %w", pos, err, ErrReadEntry)
	}
	return block, nil
}

// write stores the block at pos. The block is not synced
func (b *blockFile) write(pos uint32, block []byte) error {
	if pos == 0 {
		return fmt.Errorf("write at %d: %w", pos, ErrInvalidPosition)
	}
	if len(block) != int(b.header.ioSize) {
		return fmt.Errorf("block of %d bytes at %d: %w", len(block), pos, ErrWriteEntry)
	}
	if _, err := b.file.WriteAt(block, int64(pos)*int64(b.header.ioSize)); err != nil {
		return fmt.Errorf("write at %d: %v: %w", pos, err, ErrWriteEntry)
	}
	return nil
}

// writeHeader stores the header in block 0. The block is not synced
func (b *blockFile) writeHeader() error {
	if _, err := b.file.WriteAt(encodeHeader(b.header), 0); err != nil {
		return fmt.Errorf("write header: %v: %w", err, ErrWriteEntry)
	}
	return nil
}

// sync makes every previous write durable
func (b *blockFile) sync() error {
	if err := b.file.Sync(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrSync)
	}
	return nil
}

// close permits to close the file
func (b *blockFile) close() error {
	return b.file.Close()
}
