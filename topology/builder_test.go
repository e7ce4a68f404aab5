package topology

import (
	"errors"
	"testing"

	"smiroute/program"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ep(device string, channel int) Endpoint {
	return Endpoint{Device: program.DeviceKey(device), Channel: channel}
}

func ch(device string, index int) Channel {
	return Channel{Device: program.DeviceKey(device), Index: index}
}

func sharedMapping(keys ...string) (*program.Program, *program.Mapping) {
	p := program.New("test")
	devices := make(map[program.DeviceKey]*program.Program, len(keys))
	for _, k := range keys {
		devices[program.DeviceKey(k)] = p
	}
	return p, program.NewMapping([]*program.Program{p}, devices)
}

func TestLoadTopologyInterFPGAConnections(t *testing.T) {
	p, mapping := sharedMapping("n1:f1", "n1:f2", "n2:f1")
	connections := ConnectionsFromMap(map[Endpoint]Endpoint{
		ep("n1:f1", 0): ep("n1:f2", 0),
		ep("n1:f2", 1): ep("n2:f1", 1),
		ep("n2:f1", 0): ep("n1:f1", 1),
	})

	graph, fpgas, err := LoadTopology(connections, mapping, 4)
	require.NoError(t, err)
	require.Len(t, fpgas, 3)

	assert.Equal(t, program.DeviceKey("n1:f1"), fpgas[0].Key)
	assert.Equal(t, program.DeviceKey("n1:f2"), fpgas[1].Key)
	assert.Equal(t, program.DeviceKey("n2:f1"), fpgas[2].Key)
	assert.Same(t, p, fpgas[0].Program)

	for _, f := range fpgas {
		require.Len(t, f.Channels, 4)
		for i, c := range f.Channels {
			assert.Equal(t, f.Key, c.Device)
			assert.Equal(t, i, c.Index)
		}
	}

	assert.Equal(t, Physical, graph.EdgeKind(fpgas[0].Channels[0], fpgas[1].Channels[0]))
	assert.Equal(t, Physical, graph.EdgeKind(fpgas[0].Channels[1], fpgas[2].Channels[0]))
	assert.Equal(t, Physical, graph.EdgeKind(fpgas[1].Channels[1], fpgas[2].Channels[1]))
	assert.Equal(t, Physical, graph.EdgeKind(fpgas[2].Channels[0], fpgas[0].Channels[1]))

	assert.Equal(t, [][2]Channel{
		{ch("n1:f1", 0), ch("n1:f2", 0)},
		{ch("n1:f1", 1), ch("n2:f1", 0)},
		{ch("n1:f2", 1), ch("n2:f1", 1)},
	}, graph.PhysicalEdges())

	// 3 wires + 3 devices * C(4,2) crossbar edges
	assert.Equal(t, 12, graph.NodeCount())
	assert.Equal(t, 3+3*6, graph.EdgeCount())
}

func TestLoadTopologyCrossbarClosure(t *testing.T) {
	_, mapping := sharedMapping("a:0", "b:0")
	connections := []Connection{{From: ep("a:0", 0), To: ep("b:0", 0)}}

	for _, channels := range []int{1, 2, 4, 7} {
		graph, fpgas, err := LoadTopology(connections, mapping, channels)
		require.NoError(t, err)

		crossbar := 0
		for _, f := range fpgas {
			for i := range f.Channels {
				for j := range f.Channels {
					if i == j {
						continue
					}
					assert.True(t, graph.HasEdge(f.Channels[i], f.Channels[j]),
						"C=%d: %s and %s should share a crossbar edge", channels, f.Channels[i], f.Channels[j])
					if i < j {
						crossbar++
					}
				}
			}
		}
		assert.Equal(t, 2*channels*(channels-1)/2, crossbar)
		assert.Equal(t, crossbar+1, graph.EdgeCount())
	}
}

func TestLoadTopologyUnwiredChannelsAreNodes(t *testing.T) {
	_, mapping := sharedMapping("a:0", "b:0")
	graph, _, err := LoadTopology([]Connection{{From: ep("a:0", 0), To: ep("b:0", 3)}}, mapping, 4)
	require.NoError(t, err)

	assert.True(t, graph.Contains(ch("a:0", 2)))
	assert.Equal(t, []Channel{ch("a:0", 0), ch("a:0", 1), ch("a:0", 3)}, graph.Neighbors(ch("a:0", 2)))
	assert.Equal(t, []Channel{ch("a:0", 1), ch("a:0", 2), ch("a:0", 3), ch("b:0", 3)}, graph.Neighbors(ch("a:0", 0)))
}

func TestLoadTopologySymmetricInputIsIdempotent(t *testing.T) {
	_, mapping := sharedMapping("a:0", "b:0")
	oneWay := []Connection{{From: ep("a:0", 1), To: ep("b:0", 2)}}
	bothWays := []Connection{
		{From: ep("a:0", 1), To: ep("b:0", 2)},
		{From: ep("b:0", 2), To: ep("a:0", 1)},
		{From: ep("a:0", 1), To: ep("b:0", 2)},
	}

	g1, _, err := LoadTopology(oneWay, mapping, 4)
	require.NoError(t, err)
	g2, _, err := LoadTopology(bothWays, mapping, 4)
	require.NoError(t, err)

	assert.Equal(t, g1.EdgeCount(), g2.EdgeCount())
	assert.Equal(t, g1.PhysicalEdges(), g2.PhysicalEdges())
	assert.True(t, g2.HasEdge(ch("b:0", 2), ch("a:0", 1)))
}

func TestLoadTopologyIntraDeviceWire(t *testing.T) {
	_, mapping := sharedMapping("a:0")
	graph, fpgas, err := LoadTopology([]Connection{{From: ep("a:0", 0), To: ep("a:0", 3)}}, mapping, 4)
	require.NoError(t, err)
	require.Len(t, fpgas, 1)

	assert.Equal(t, Physical, graph.EdgeKind(ch("a:0", 0), ch("a:0", 3)))
	assert.Equal(t, Crossbar, graph.EdgeKind(ch("a:0", 0), ch("a:0", 1)))
	assert.Equal(t, 6, graph.EdgeCount())
}

func TestLoadTopologyErrors(t *testing.T) {
	_, mapping := sharedMapping("a:0", "b:0", "c:0")

	testCases := []struct {
		name        string
		connections []Connection
		channels    int
		want        error
	}{
		{
			name:        "unresolved mapping",
			connections: []Connection{{From: ep("a:0", 0), To: ep("z:9", 0)}},
			channels:    4,
			want:        program.ErrUnresolvedMapping,
		},
		{
			name:        "channel index too large",
			connections: []Connection{{From: ep("a:0", 4), To: ep("b:0", 0)}},
			channels:    4,
			want:        ErrInvalidChannel,
		},
		{
			name:        "negative channel index",
			connections: []Connection{{From: ep("a:0", 0), To: ep("b:0", -1)}},
			channels:    4,
			want:        ErrInvalidChannel,
		},
		{
			name:        "self connection",
			connections: []Connection{{From: ep("a:0", 2), To: ep("a:0", 2)}},
			channels:    4,
			want:        ErrSelfConnection,
		},
		{
			name: "channel wired twice",
			connections: []Connection{
				{From: ep("a:0", 0), To: ep("b:0", 0)},
				{From: ep("c:0", 0), To: ep("a:0", 0)},
			},
			channels: 4,
			want:     ErrChannelInUse,
		},
		{
			name:        "zero channels",
			connections: []Connection{{From: ep("a:0", 0), To: ep("b:0", 0)}},
			channels:    0,
			want:        ErrInvalidChannelCount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			graph, fpgas, err := LoadTopology(tc.connections, mapping, tc.channels)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
			assert.Nil(t, graph)
			assert.Nil(t, fpgas)
		})
	}
}

func TestLoadTopologyUnresolvedBeforeChannelChecks(t *testing.T) {
	_, mapping := sharedMapping("a:0")
	connections := []Connection{
		{From: ep("a:0", 9), To: ep("a:0", 1)},
		{From: ep("a:0", 0), To: ep("missing:0", 0)},
	}

	_, _, err := LoadTopology(connections, mapping, 4)
	assert.ErrorIs(t, err, program.ErrUnresolvedMapping)
}

func TestLoadTopologyEmpty(t *testing.T) {
	_, mapping := sharedMapping("a:0")
	graph, fpgas, err := LoadTopology(nil, mapping, 4)
	require.NoError(t, err)
	assert.Empty(t, fpgas)
	assert.Equal(t, 0, graph.NodeCount())
}
