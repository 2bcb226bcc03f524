package device

import (
	"bytes"
	"eepromkv/pkg/primitives"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// FileFlash persists a flash region in an image file so that a store
// survives process restarts. Byte i of the file holds address Base+i.
//
// Every mutation is followed by Sync, so a completed program or erase is
// durable before the call returns; a crash can only lose the operation that
// was in flight, which is the failure model the store recovers from.
//
// Thread-safety: All public methods take the internal lock.
type FileFlash struct {
	file     *os.File
	path     primitives.Filepath
	region   Region
	erases   []uint64
	unlocked bool
	mutex    sync.RWMutex
}

// OpenFileFlash opens the image at path, creating a fully erased one if the
// file does not exist or is empty.
//
// Returns an error if the path is empty, the region is invalid, or an
// existing image has a size that does not match the region.
func OpenFileFlash(path primitives.Filepath, region Region) (*FileFlash, error) {
	if path.IsEmpty() {
		return nil, fmt.Errorf("image path cannot be empty")
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path.String(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	switch info.Size() {
	case 0:
		if _, err := file.WriteAt(bytes.Repeat([]byte{0xFF}, region.Size()), 0); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to initialise image: %w", err)
		}
		if err := file.Sync(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to sync image: %w", err)
		}
	case int64(region.Size()):
	default:
		file.Close()
		return nil, fmt.Errorf("image %s has %d bytes, expected %d", path, info.Size(), region.Size())
	}

	return &FileFlash{
		file:   file,
		path:   path,
		region: region,
		erases: make([]uint64, region.NumPages),
	}, nil
}

// Path returns the image file path.
func (ff *FileFlash) Path() primitives.Filepath {
	return ff.path
}

// Region returns the address window served by this image.
func (ff *FileFlash) Region() Region {
	return ff.region
}

// ReadUnit reads one unit from the image.
func (ff *FileFlash) ReadUnit(addr primitives.Address) (primitives.Unit, error) {
	ff.mutex.RLock()
	defer ff.mutex.RUnlock()

	if ff.file == nil {
		return 0, ErrClosed
	}

	off, err := ff.region.offset(addr, primitives.UnitSize)
	if err != nil {
		return 0, err
	}

	var buf [primitives.UnitSize]byte
	if _, err := ff.file.ReadAt(buf[:], int64(off)); err != nil {
		return 0, fmt.Errorf("failed to read unit at %v: %w", addr, err)
	}
	return primitives.Unit(binary.LittleEndian.Uint32(buf[:])), nil
}

// ProgramUnit programs one unit in the image.
func (ff *FileFlash) ProgramUnit(addr primitives.Address, bits primitives.Unit) error {
	var buf [primitives.UnitSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(bits))
	return ff.mutate(func() error {
		return ff.program(addr, buf[:])
	})
}

// ProgramDoubleUnit programs two adjacent units with a single write.
func (ff *FileFlash) ProgramDoubleUnit(addr primitives.Address, bits uint64) error {
	var buf [primitives.DoubleUnitSize]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	return ff.mutate(func() error {
		return ff.program(addr, buf[:])
	})
}

// ErasePage fills the page starting at base with ones.
func (ff *FileFlash) ErasePage(base primitives.Address) error {
	return ff.mutate(func() error {
		page, err := ff.region.pageOf(base)
		if err != nil {
			return err
		}

		off := int64(page) * int64(ff.region.PageSize)
		if _, err := ff.file.WriteAt(bytes.Repeat([]byte{0xFF}, int(ff.region.PageSize)), off); err != nil {
			return fmt.Errorf("failed to erase page %d: %w", page, err)
		}
		if err := ff.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync file: %w", err)
		}

		ff.erases[page]++
		return nil
	})
}

func (ff *FileFlash) mutate(op func() error) error {
	ff.mutex.Lock()
	defer ff.mutex.Unlock()

	if ff.file == nil {
		return ErrClosed
	}

	ff.unlocked = true
	defer func() { ff.unlocked = false }()

	return op()
}

func (ff *FileFlash) program(addr primitives.Address, data []byte) error {
	if !ff.unlocked {
		return ErrLocked
	}

	off, err := ff.region.offset(addr, uint32(len(data)))
	if err != nil {
		return err
	}

	stored := make([]byte, len(data))
	if _, err := ff.file.ReadAt(stored, int64(off)); err != nil {
		return fmt.Errorf("failed to read back %v: %w", addr, err)
	}
	if err := checkProgram(stored, data); err != nil {
		return err
	}

	if _, err := ff.file.WriteAt(data, int64(off)); err != nil {
		return fmt.Errorf("failed to program %v: %w", addr, err)
	}
	if err := ff.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// EraseCounts returns the erases performed through this handle per page.
func (ff *FileFlash) EraseCounts() []uint64 {
	ff.mutex.RLock()
	defer ff.mutex.RUnlock()

	return append([]uint64(nil), ff.erases...)
}

// Close closes the underlying image file.
// It's safe to call Close multiple times.
func (ff *FileFlash) Close() error {
	ff.mutex.Lock()
	defer ff.mutex.Unlock()

	if ff.file != nil {
		err := ff.file.Close()
		ff.file = nil
		return err
	}
	return nil
}
