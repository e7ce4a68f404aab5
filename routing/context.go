package routing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"smiroute/common"
	"smiroute/program"
	"smiroute/topology"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultChannelsPerFPGA is the channel count used when none is configured
	DefaultChannelsPerFPGA = 4
)

var (
	ErrNotConnected   = errors.New("channels are not connected")
	ErrUnknownChannel = errors.New("channel is not part of the topology")
)

type options struct {
	channelsPerFPGA int
	precompute      bool
	workers         int
}

// Option configures NewContext.
type Option func(*options)

// WithChannelsPerFPGA sets the number of channels every FPGA exposes
func WithChannelsPerFPGA(n int) Option {
	return func(o *options) { o.channelsPerFPGA = n }
}

// WithPrecompute makes NewContext compute every route before returning
func WithPrecompute(precompute bool) Option {
	return func(o *options) { o.precompute = precompute }
}

// WithWorkers bounds the goroutine pool used for precomputation.
// Zero means one worker per logical CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Context answers shortest-route queries over a fixed fabric.
//
// The graph and FPGA registry never change after NewContext returns. Routes
// are derived from one breadth-first tree per source channel, computed either
// up front (WithPrecompute) or on first use and then kept. A Context is safe
// for concurrent use; to reflect a new fabric build a new Context.
type Context struct {
	graph *topology.Graph
	fpgas []*topology.FPGA
	byKey map[program.DeviceKey]*topology.FPGA
	trees []sourceTree
}

type sourceTree struct {
	once   sync.Once
	parent []int
	dist   []int
}

// NewContext loads the topology described by connections and mapping and
// wraps it for routing.
func NewContext(connections []topology.Connection, mapping *program.Mapping, opts ...Option) (*Context, error) {
	o := options{channelsPerFPGA: DefaultChannelsPerFPGA}
	for _, opt := range opts {
		opt(&o)
	}

	graph, fpgas, err := topology.LoadTopology(connections, mapping, o.channelsPerFPGA)
	if err != nil {
		return nil, err
	}

	c := &Context{
		graph: graph,
		fpgas: fpgas,
		byKey: make(map[program.DeviceKey]*topology.FPGA, len(fpgas)),
		trees: make([]sourceTree, graph.NodeCount()),
	}
	for _, f := range fpgas {
		c.byKey[f.Key] = f
	}

	if o.precompute {
		if err := c.precompute(o.workers); err != nil {
			return nil, err
		}
	}

	log.Infof("NewContext: fpga num: %d, channel num: %d, precompute: %v", len(fpgas), graph.NodeCount(), o.precompute)
	return c, nil
}

// precompute fills every source tree using a bounded goroutine pool
func (c *Context) precompute(workers int) error {
	start := time.Now()

	pool, err := common.NewPool(common.PoolConfig{MaxWorkers: workers})
	if err != nil {
		return fmt.Errorf("precompute: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range c.trees {
		source := i
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			c.tree(source)
		})
		if err != nil {
			log.Warnf("precompute: failed to submit source %s: %v, computing inline", c.graph.ChannelAt(source), err)
			c.tree(source)
			wg.Done()
		}
	}
	wg.Wait()

	log.Infof("precompute: computed %d source trees in %v", len(c.trees), time.Since(start))
	return nil
}

func (c *Context) tree(source int) *sourceTree {
	t := &c.trees[source]
	t.once.Do(func() {
		t.parent, t.dist = shortestPathTree(c.graph, source)
	})
	return t
}

// Graph returns the topology graph
func (c *Context) Graph() *topology.Graph {
	return c.graph
}

// FPGAs returns the FPGA registry sorted by device key
func (c *Context) FPGAs() []*topology.FPGA {
	out := make([]*topology.FPGA, len(c.fpgas))
	copy(out, c.fpgas)
	return out
}

// FPGA looks up a device by key
func (c *Context) FPGA(key program.DeviceKey) (*topology.FPGA, bool) {
	f, ok := c.byKey[key]
	return f, ok
}

// Channel returns channel index of device key.
func (c *Context) Channel(key program.DeviceKey, index int) (topology.Channel, error) {
	f, ok := c.byKey[key]
	if !ok {
		return topology.Channel{}, fmt.Errorf("%w: device %q", ErrUnknownChannel, key)
	}
	ch, ok := f.Channel(index)
	if !ok {
		return topology.Channel{}, fmt.Errorf("%w: %s:ch%d", ErrUnknownChannel, key, index)
	}
	return ch, nil
}

func (c *Context) indexes(source, destination topology.Channel) (int, int, error) {
	si, ok := c.graph.IndexOf(source)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownChannel, source)
	}
	di, ok := c.graph.IndexOf(destination)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownChannel, destination)
	}
	return si, di, nil
}

// Route returns a shortest sequence of channels from source to destination,
// both included. Consecutive channels are joined by a physical wire or a
// crossbar hop. Among equally short routes the result is always the same.
func (c *Context) Route(source, destination topology.Channel) ([]topology.Channel, error) {
	si, di, err := c.indexes(source, destination)
	if err != nil {
		return nil, err
	}
	t := c.tree(si)
	if t.dist[di] < 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNotConnected, source, destination)
	}
	return c.walk(t, di), nil
}

// walk rebuilds the route to node from the parent links of t
func (c *Context) walk(t *sourceTree, node int) []topology.Channel {
	path := make([]topology.Channel, t.dist[node]+1)
	for i := len(path) - 1; i >= 0; i-- {
		path[i] = c.graph.ChannelAt(node)
		node = t.parent[node]
	}
	return path
}

// Distance returns the number of hops on the shortest route
func (c *Context) Distance(source, destination topology.Channel) (int, error) {
	si, di, err := c.indexes(source, destination)
	if err != nil {
		return 0, err
	}
	d := c.tree(si).dist[di]
	if d < 0 {
		return 0, fmt.Errorf("%w: %s -> %s", ErrNotConnected, source, destination)
	}
	return d, nil
}

// Hop is one step of a route.
type Hop struct {
	From topology.Channel
	To   topology.Channel
	Kind topology.EdgeKind
}

// Hops returns the route from source to destination as classified hops.
// A route from a channel to itself has no hops.
func (c *Context) Hops(source, destination topology.Channel) ([]Hop, error) {
	path, err := c.Route(source, destination)
	if err != nil {
		return nil, err
	}
	hops := make([]Hop, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		hops = append(hops, Hop{
			From: path[i-1],
			To:   path[i],
			Kind: c.graph.EdgeKind(path[i-1], path[i]),
		})
	}
	return hops, nil
}

// Table maps a source channel to every reachable destination and its route.
type Table map[topology.Channel]map[topology.Channel][]topology.Channel

// Routes materialises the route between every connected pair of channels,
// so that Routes()[src][dst] equals Route(src, dst).
func (c *Context) Routes() Table {
	table := make(Table, len(c.trees))
	for si := range c.trees {
		t := c.tree(si)
		row := make(map[topology.Channel][]topology.Channel)
		for di, d := range t.dist {
			if d >= 0 {
				row[c.graph.ChannelAt(di)] = c.walk(t, di)
			}
		}
		table[c.graph.ChannelAt(si)] = row
	}
	return table
}
