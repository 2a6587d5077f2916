package fbp

import (
	"fmt"
)

// connectOptions configures a single Connect call.
type connectOptions struct {
	capacity int
}

// ConnectOption configures the connection created by Graph.Connect.
type ConnectOption func(*connectOptions)

// WithCapacity overrides the connection's buffer capacity. The default is
// 1, matching classical FBP semantics (spec.md §9, Open Question #2).
func WithCapacity(n int) ConnectOption {
	return func(o *connectOptions) { o.capacity = n }
}

// Graph is a static description of components, connections, and initial
// information packets. It is built up with AddComponent, Connect, and
// SetInitialPacket, then handed to an Executor. A Graph has no behavior of
// its own beyond validation; all execution lives in Executor.
type Graph struct {
	order []string
	shell map[string]*componentShell
	conns []*Connection
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{shell: map[string]*componentShell{}}
}

// AddComponent registers c with the graph and immediately calls c.Initialize
// to declare its ports, transitioning it NOT_INITIALIZED -> INITIALIZED
// (spec.md §4.3). It is an error to add two components with the same name.
func (g *Graph) AddComponent(c Component) error {
	name := c.Name()
	if _, exists := g.shell[name]; exists {
		return newError(CodeDuplicateComponent, name, "", fmt.Errorf("component %q already added to graph", name))
	}
	s := newComponentShell(c)
	s.state = StateNotInitialized
	c.Initialize(&InitContext{shell: s})
	s.state = StateInitialized
	g.shell[name] = s
	g.order = append(g.order, name)
	return nil
}

func (g *Graph) port(component, name string, input bool) (any, error) {
	s, ok := g.shell[component]
	if !ok {
		return nil, newError(CodeUnknownPort, component, name, fmt.Errorf("no such component %q", component))
	}
	if input {
		p, ok := s.inputs[name]
		if !ok {
			return nil, newError(CodeUnknownPort, component, name, fmt.Errorf("component %q has no input port %q", component, name))
		}
		return p, nil
	}
	p, ok := s.outputs[name]
	if !ok {
		return nil, newError(CodeUnknownPort, component, name, fmt.Errorf("component %q has no output port %q", component, name))
	}
	return p, nil
}

// InputPort looks up a previously declared input port by (component, port)
// name, matching spec.md §6's `inputs[name]` accessor.
func (g *Graph) InputPort(component, name string) (*InputPort, error) {
	p, err := g.port(component, name, true)
	if err != nil {
		return nil, err
	}
	return p.(*InputPort), nil
}

// OutputPort looks up a previously declared output port by (component,
// port) name, matching spec.md §6's `outputs[name]` accessor.
func (g *Graph) OutputPort(component, name string) (*OutputPort, error) {
	p, err := g.port(component, name, false)
	if err != nil {
		return nil, err
	}
	return p.(*OutputPort), nil
}

// Connect wires an output port to an input port with a bounded connection.
// It is an error for either port to already be connected, or for either
// name to be unknown.
func (g *Graph) Connect(fromComponent, fromPort, toComponent, toPort string, opts ...ConnectOption) error {
	out, err := g.OutputPort(fromComponent, fromPort)
	if err != nil {
		return err
	}
	in, err := g.InputPort(toComponent, toPort)
	if err != nil {
		return err
	}
	if out.conn != nil {
		return newError(CodePortAlreadyConnected, fromComponent, fromPort, fmt.Errorf("output port already connected"))
	}
	if in.conn != nil {
		return newError(CodePortAlreadyConnected, toComponent, toPort, fmt.Errorf("input port already connected"))
	}

	o := connectOptions{capacity: 1}
	for _, opt := range opts {
		opt(&o)
	}

	conn := newConnection(o.capacity, fromComponent, fromPort, toComponent, toPort)
	out.conn = conn
	in.conn = conn
	g.conns = append(g.conns, conn)
	return nil
}

// SetInitialPacket registers an IIP on the given input port: a value
// delivered before any packet from the port's connection, or before
// END_OF_STREAM if the port has no connection (spec.md §4.2).
func (g *Graph) SetInitialPacket(component, port string, value any) error {
	in, err := g.InputPort(component, port)
	if err != nil {
		return err
	}
	in.iips = append(in.iips, Data(value, in.owner.channel))
	return nil
}

// validate checks the invariants required before execution (spec.md §4.5):
// every declared connection still references live ports (guaranteed by
// construction here), no port is multiply connected (also guaranteed by
// construction), and every component has been initialized.
func (g *Graph) validate() error {
	if len(g.shell) == 0 {
		return newError(CodeUnknownPort, "", "", fmt.Errorf("graph has no components"))
	}
	for _, name := range g.order {
		s := g.shell[name]
		if s.state != StateInitialized {
			return newError(CodeUnknownPort, name, "", fmt.Errorf("component %q was not initialized", name))
		}
	}
	return nil
}

func (g *Graph) shellsInOrder() []*componentShell {
	shells := make([]*componentShell, 0, len(g.order))
	for _, name := range g.order {
		shells = append(shells, g.shell[name])
	}
	return shells
}
