package topology

import (
	"errors"
	"fmt"
	"sort"

	"smiroute/program"

	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidChannelCount = errors.New("channels per FPGA must be at least 1")
	ErrInvalidChannel      = errors.New("channel index out of range")
	ErrSelfConnection      = errors.New("channel is connected to itself")
	ErrChannelInUse        = errors.New("channel is already wired to another channel")
)

// LoadTopology builds the channel graph for a fabric. Every device referenced
// by connections becomes an FPGA with channelsPerFPGA channels, every entry
// becomes an undirected physical edge and every pair of channels on the same
// FPGA is joined by a crossbar edge. FPGAs are returned sorted by key.
//
// Any invalid entry aborts the load; no partial graph is returned.
func LoadTopology(connections []Connection, mapping *program.Mapping,
	channelsPerFPGA int) (*Graph, []*FPGA, error) {

	if channelsPerFPGA < 1 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidChannelCount, channelsPerFPGA)
	}
	if mapping == nil {
		return nil, nil, fmt.Errorf("%w: no program mapping supplied", program.ErrUnresolvedMapping)
	}

	fpgas := make(map[program.DeviceKey]*FPGA)
	resolve := func(key program.DeviceKey) error {
		if _, exists := fpgas[key]; exists {
			return nil
		}
		p, err := mapping.ProgramFor(key)
		if err != nil {
			return err
		}
		fpgas[key] = newFPGA(key, p, channelsPerFPGA)
		return nil
	}

	for _, conn := range connections {
		if err := resolve(conn.From.Device); err != nil {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w", conn, err)
		}
		if err := resolve(conn.To.Device); err != nil {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w", conn, err)
		}
	}

	links := newLinkSet()
	for _, f := range fpgas {
		for _, c := range f.Channels {
			links.addNode(c)
		}
	}

	peers := make(map[Channel]Channel)
	wires := 0
	for _, conn := range connections {
		if err := checkEndpoint(conn.From, channelsPerFPGA); err != nil {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w", conn, err)
		}
		if err := checkEndpoint(conn.To, channelsPerFPGA); err != nil {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w", conn, err)
		}

		a, b := conn.From.channel(), conn.To.channel()
		if a == b {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w", conn, ErrSelfConnection)
		}
		if peer, wired := peers[a]; wired && peer != b {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w: %s is wired to %s", conn, ErrChannelInUse, a, peer)
		}
		if peer, wired := peers[b]; wired && peer != a {
			return nil, nil, fmt.Errorf("LoadTopology: %s: %w: %s is wired to %s", conn, ErrChannelInUse, b, peer)
		}
		if _, wired := peers[a]; !wired {
			wires++
		}
		peers[a] = b
		peers[b] = a
		links.addLink(a, b, Physical)
	}

	registry := make([]*FPGA, 0, len(fpgas))
	for _, f := range fpgas {
		registry = append(registry, f)
		addCrossbar(links, f)
	}
	sort.Slice(registry, func(i, j int) bool { return registry[i].Key < registry[j].Key })

	graph := links.freeze()
	log.Infof("LoadTopology: fpga num: %d, channel num: %d, physical wires: %d, edge num: %d",
		len(registry), graph.NodeCount(), wires, graph.EdgeCount())

	return graph, registry, nil
}

func checkEndpoint(e Endpoint, channelsPerFPGA int) error {
	if e.Channel < 0 || e.Channel >= channelsPerFPGA {
		return fmt.Errorf("%w: %s (valid range [0, %d))", ErrInvalidChannel, e, channelsPerFPGA)
	}
	return nil
}

// addCrossbar joins every pair of distinct channels of f
func addCrossbar(links *linkSet, f *FPGA) {
	for i := 0; i < len(f.Channels); i++ {
		for j := i + 1; j < len(f.Channels); j++ {
			links.addLink(f.Channels[i], f.Channels[j], Crossbar)
		}
	}
}
