// Package memgpio drives BCM2835-family GPIO pins by writing the controller's
// registers directly through a memory mapping of /dev/mem.
package memgpio

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// DefaultBase is the physical address of the GPIO block on a Raspberry Pi 4.
	DefaultBase = 0xFE200000
	MapLen      = 4096

	RegFSEL0 = 0x00 // Function select, 10 pins per register, 3 bits per pin.
	RegSET0  = 0x1C // Output set, pins 0-31 (SET1 at +4 for 32-53).
	RegCLR0  = 0x28 // Output clear, pins 0-31 (CLR1 at +4 for 32-53).

	NumPins = 54

	fselMask   = 0x7
	fselOutput = 0x1
)

var ErrPinOutOfRange = errors.New("GPIO pin out of range")

type Mem struct {
	lock sync.Mutex
	regs []byte

	release func() error
}

// Open maps the GPIO register window at the given physical base address.  The
// caller needs permission to open the device (normally root for /dev/mem).
func Open(device string, base int64) (*Mem, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", device)
	}
	regs, err := unix.Mmap(fd, base, MapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "failed to map %s at %#x", device, base)
	}
	m := New(regs)
	m.release = func() error {
		err := unix.Munmap(regs)
		if closeErr := unix.Close(fd); err == nil {
			err = closeErr
		}
		return err
	}
	return m, nil
}

// New wraps an already-mapped register window (or any buffer of at least
// MapLen bytes laid out the same way).
func New(regs []byte) *Mem {
	return &Mem{regs: regs}
}

func (m *Mem) readReg(offset int) uint32 {
	return binary.LittleEndian.Uint32(m.regs[offset : offset+4])
}

func (m *Mem) writeReg(offset int, value uint32) {
	binary.LittleEndian.PutUint32(m.regs[offset:offset+4], value)
}

func checkPin(pin int) error {
	if pin < 0 || pin >= NumPins {
		return errors.Wrapf(ErrPinOutOfRange, "pin %d", pin)
	}
	return nil
}

// SetOutput configures the pin as an output with a read-modify-write of its
// function select register.
func (m *Mem) SetOutput(pin int) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	offset := RegFSEL0 + 4*(pin/10)
	shift := uint(3 * (pin % 10))
	val := m.readReg(offset)
	val &^= fselMask << shift
	val |= fselOutput << shift
	m.writeReg(offset, val)
	return nil
}

// Set drives the pin high.
func (m *Mem) Set(pin int) error {
	return m.writeBit(RegSET0, pin)
}

// Clear drives the pin low.
func (m *Mem) Clear(pin int) error {
	return m.writeBit(RegCLR0, pin)
}

// The set and clear registers ignore zero bits, so no read is needed.
func (m *Mem) writeBit(base, pin int) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	m.writeReg(base+4*(pin/32), 1<<uint(pin%32))
	return nil
}

func (m *Mem) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	m.regs = nil
	return err
}
