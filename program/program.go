package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnresolvedMapping is returned when a device key has no Program assigned.
var ErrUnresolvedMapping = errors.New("device key is not mapped to a program")

// DeviceKey identifies one physical FPGA as "node:slot".
// It is only ever compared for equality or ordered lexically.
type DeviceKey string

// Node returns the part of the key before the first ':'
func (k DeviceKey) Node() string {
	node, _, _ := strings.Cut(string(k), ":")
	return node
}

// Slot returns the part of the key after the first ':', or "" when there is none
func (k DeviceKey) Slot() string {
	_, slot, _ := strings.Cut(string(k), ":")
	return slot
}

func (k DeviceKey) String() string {
	return string(k)
}

// Program is a compiled workload. Programs are compared by identity, so the
// same *Program may run on several devices.
type Program struct {
	Name string
}

// New creates a program with the given diagnostic name
func New(name string) *Program {
	return &Program{Name: name}
}

func (p *Program) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

// Mapping assigns Programs to devices.
type Mapping struct {
	programs []*Program
	devices  map[DeviceKey]*Program
}

// NewMapping builds a mapping from the distinct program set and the
// device -> program assignment. The input map is copied.
func NewMapping(programs []*Program, devices map[DeviceKey]*Program) *Mapping {
	m := &Mapping{
		programs: make([]*Program, len(programs)),
		devices:  make(map[DeviceKey]*Program, len(devices)),
	}
	copy(m.programs, programs)
	for key, p := range devices {
		m.devices[key] = p
	}
	return m
}

// Programs returns the distinct program set in the order it was supplied
func (m *Mapping) Programs() []*Program {
	out := make([]*Program, len(m.programs))
	copy(out, m.programs)
	return out
}

// ProgramFor resolves the program running on key.
func (m *Mapping) ProgramFor(key DeviceKey) (*Program, error) {
	p, ok := m.devices[key]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedMapping, key)
	}
	return p, nil
}

// DeviceKeys returns every mapped device key in ascending order
func (m *Mapping) DeviceKeys() []DeviceKey {
	keys := make([]DeviceKey, 0, len(m.devices))
	for key := range m.devices {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DevicesOf returns the devices running p in ascending order
func (m *Mapping) DevicesOf(p *Program) []DeviceKey {
	var keys []DeviceKey
	for key, assigned := range m.devices {
		if assigned == p {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Validate checks that every device is assigned a program from the program set.
func (m *Mapping) Validate() error {
	known := make(map[*Program]bool, len(m.programs))
	for _, p := range m.programs {
		known[p] = true
	}
	for _, key := range m.DeviceKeys() {
		p := m.devices[key]
		if p == nil {
			return fmt.Errorf("%w: %q has a nil program", ErrUnresolvedMapping, key)
		}
		if !known[p] {
			return fmt.Errorf("device %q runs program %q which is not part of the program set", key, p.Name)
		}
	}
	return nil
}
