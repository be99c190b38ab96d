package power

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/spf13/afero"
)

const (
	// DefaultMSRPath is the per-CPU model specific register device.
	DefaultMSRPath = "/dev/cpu/0/msr"
	// PackageEnergyStatus is MSR_PKG_ENERGY_STATUS.
	PackageEnergyStatus = 0x611

	msrWidth = 8
)

// Register reads the raw package energy accumulator.
type Register interface {
	ReadCounter() (uint32, error)
	Close() error
}

// MSR reads a 32-bit counter from an MSR device file.
type MSR struct {
	mu     sync.Mutex
	file   afero.File
	offset int64
	buf    [msrWidth]byte
}

// OpenMSR opens the register device. Reading MSRs needs root or
// CAP_SYS_RAWIO and the msr kernel module.
func OpenMSR(fs afero.Fs, path string, offset int64) (*MSR, error) {
	errFactory := errors.New()

	f, err := fs.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrRegisterOpen, err).WithData(path)
	}
	return &MSR{file: f, offset: offset}, nil
}

// ReadCounter seeks to the register offset, reads the full 8-byte register
// and decodes the low 4 bytes as a little-endian uint32.
func (m *MSR) ReadCounter() (uint32, error) {
	errFactory := errors.New()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.file.Seek(m.offset, io.SeekStart); err != nil {
		return 0, errFactory.Wrap(errors.ErrRegisterRead, err)
	}
	if _, err := io.ReadFull(m.file, m.buf[:]); err != nil {
		return 0, errFactory.Wrap(errors.ErrRegisterRead, err)
	}
	return binary.LittleEndian.Uint32(m.buf[:4]), nil
}

func (m *MSR) Close() error {
	if err := m.file.Close(); err != nil {
		return errors.New().Wrap(errors.ErrRegisterClose, err)
	}
	return nil
}
