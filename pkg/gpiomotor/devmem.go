package gpiomotor

import (
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/memgpio"
)

type devmemBackend struct {
	mem *memgpio.Mem
}

// NewDevmem drives the pins through raw register writes on a /dev/mem mapping
// at the given physical base address.
func NewDevmem(device string, base int64) (Backend, error) {
	mem, err := memgpio.Open(device, base)
	if err != nil {
		return nil, err
	}
	return NewMemBackend(mem), nil
}

// NewMemBackend wraps an existing register mapping.
func NewMemBackend(mem *memgpio.Mem) Backend {
	return &devmemBackend{mem: mem}
}

func (b *devmemBackend) Name() string {
	return "devmem"
}

func (b *devmemBackend) Pin(n int) (Pin, error) {
	if err := b.mem.SetOutput(n); err != nil {
		return nil, err
	}
	return devmemPin{mem: b.mem, n: n}, nil
}

func (b *devmemBackend) Close() error {
	return b.mem.Close()
}

type devmemPin struct {
	mem *memgpio.Mem
	n   int
}

func (p devmemPin) Out(high bool) error {
	if high {
		return p.mem.Set(p.n)
	}
	return p.mem.Clear(p.n)
}
