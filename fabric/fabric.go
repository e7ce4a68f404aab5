// Package fabric reads a fabric description (which program runs on which FPGA
// and which channels are wired together) from a file.
//
// Two formats are understood. TOML files mirror the dictionary form:
//
//	[fpgas]
//	"n1:f1" = "bcast"
//
//	[connections]
//	"n1:f1:ch0" = "n1:f2:ch0"
//
// Any other file is read as a wiring list, one statement per line:
//
//	# comment
//	fpga n1:f1 = bcast
//	n1:f1:ch0 -> n1:f2:ch0
//
// Endpoints are written node:slot:channel where channel is "chN" or "N".
package fabric

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"smiroute/program"
	"smiroute/topology"

	log "github.com/sirupsen/logrus"
)

var (
	ErrSyntax          = errors.New("fabric syntax error")
	ErrDuplicateDevice = errors.New("device assigned to more than one program")
)

// Fabric is a loaded description: the program mapping and the raw wiring.
type Fabric struct {
	Mapping     *program.Mapping
	Connections []topology.Connection
}

// LoadFile reads path, choosing the format from its extension
func LoadFile(path string) (*Fabric, error) {
	var (
		f   *Fabric
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		f, err = LoadTOML(path)
	default:
		f, err = LoadWiring(path)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("LoadFile: loaded %s, programs: %d, devices: %d, connections: %d",
		path, len(f.Mapping.Programs()), len(f.Mapping.DeviceKeys()), len(f.Connections))
	return f, nil
}

// assembler collects assignments and wires, creating one Program per name.
type assembler struct {
	programs map[string]*program.Program
	order    []*program.Program
	devices  map[program.DeviceKey]*program.Program
	conns    []topology.Connection
}

func newAssembler() *assembler {
	return &assembler{
		programs: make(map[string]*program.Program),
		devices:  make(map[program.DeviceKey]*program.Program),
	}
}

func (a *assembler) assign(device program.DeviceKey, name string) error {
	if name == "" {
		return fmt.Errorf("%w: device %q has an empty program name", ErrSyntax, device)
	}
	p, ok := a.programs[name]
	if !ok {
		p = program.New(name)
		a.programs[name] = p
		a.order = append(a.order, p)
	}
	if prev, exists := a.devices[device]; exists && prev != p {
		return fmt.Errorf("%w: %q runs %q and %q", ErrDuplicateDevice, device, prev.Name, name)
	}
	a.devices[device] = p
	return nil
}

func (a *assembler) wire(from, to topology.Endpoint) {
	a.conns = append(a.conns, topology.Connection{From: from, To: to})
}

func (a *assembler) fabric() *Fabric {
	return &Fabric{
		Mapping:     program.NewMapping(a.order, a.devices),
		Connections: a.conns,
	}
}

// ParseDeviceKey validates a "node:slot" key
func ParseDeviceKey(s string) (program.DeviceKey, error) {
	node, slot, ok := strings.Cut(s, ":")
	if !ok || node == "" || slot == "" || strings.Contains(slot, ":") {
		return "", fmt.Errorf("%w: device %q is not node:slot", ErrSyntax, s)
	}
	return program.DeviceKey(s), nil
}

// ParseEndpoint parses "node:slot:chN" (or "node:slot:N")
func ParseEndpoint(s string) (topology.Endpoint, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return topology.Endpoint{}, fmt.Errorf("%w: endpoint %q is not node:slot:channel", ErrSyntax, s)
	}
	device, err := ParseDeviceKey(s[:i])
	if err != nil {
		return topology.Endpoint{}, fmt.Errorf("%w: endpoint %q is not node:slot:channel", ErrSyntax, s)
	}
	channel, err := parseChannel(s[i+1:])
	if err != nil {
		return topology.Endpoint{}, fmt.Errorf("endpoint %q: %w", s, err)
	}
	return topology.Endpoint{Device: device, Channel: channel}, nil
}

func parseChannel(s string) (int, error) {
	digits := strings.TrimPrefix(strings.ToLower(s), "ch")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: channel %q is not chN or N", ErrSyntax, s)
	}
	return n, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
