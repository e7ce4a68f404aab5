package topology

import (
	"fmt"
	"sort"

	"smiroute/program"
)

// Channel is one addressable port of an FPGA and a node of the routing graph.
// Two channels are equal iff they name the same device and index.
type Channel struct {
	Device program.DeviceKey
	Index  int
}

// Less orders channels by device key, then index
func (c Channel) Less(o Channel) bool {
	if c.Device != o.Device {
		return c.Device < o.Device
	}
	return c.Index < o.Index
}

func (c Channel) String() string {
	return fmt.Sprintf("%s:ch%d", c.Device, c.Index)
}

// FPGA is one physical device with a fixed number of channels.
type FPGA struct {
	Key      program.DeviceKey
	Program  *program.Program
	Channels []Channel
}

func newFPGA(key program.DeviceKey, p *program.Program, channels int) *FPGA {
	f := &FPGA{
		Key:      key,
		Program:  p,
		Channels: make([]Channel, channels),
	}
	for i := range f.Channels {
		f.Channels[i] = Channel{Device: key, Index: i}
	}
	return f
}

// Channel returns the channel at index, or false when out of range
func (f *FPGA) Channel(index int) (Channel, bool) {
	if index < 0 || index >= len(f.Channels) {
		return Channel{}, false
	}
	return f.Channels[index], true
}

// Endpoint names one side of a physical wire.
type Endpoint struct {
	Device  program.DeviceKey
	Channel int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:ch%d", e.Device, e.Channel)
}

func (e Endpoint) channel() Channel {
	return Channel{Device: e.Device, Index: e.Channel}
}

// Connection records that a physical wire joins two channels. Only one
// direction needs to be recorded.
type Connection struct {
	From Endpoint
	To   Endpoint
}

func (c Connection) String() string {
	return c.From.String() + " -> " + c.To.String()
}

// ConnectionsFromMap converts the dictionary form of a connection table into a
// slice ordered by source endpoint.
func ConnectionsFromMap(m map[Endpoint]Endpoint) []Connection {
	conns := make([]Connection, 0, len(m))
	for from, to := range m {
		conns = append(conns, Connection{From: from, To: to})
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].From.channel().Less(conns[j].From.channel())
	})
	return conns
}
