package main

import (
	"fmt"

	"github.com/flowrun/fbp"
)

// source emits a fixed sequence of packets on OUT, then returns. It is
// the demo binary's stand-in for a real upstream producer.
type source struct {
	name    string
	packets []fbp.Packet
	out     *fbp.OutputPort
}

func newSource(name string, values ...string) *source {
	s := &source{name: name}
	for _, v := range values {
		s.packets = append(s.packets, fbp.Data(v, ""))
	}
	return s
}

func newPacketSource(name string, packets ...fbp.Packet) *source {
	return &source{name: name, packets: packets}
}

func (s *source) Name() string { return s.name }
func (s *source) Initialize(ic *fbp.InitContext) {
	s.out = ic.OutputPort("OUT")
}
func (s *source) Run(rc *fbp.RunContext) error {
	for _, p := range s.packets {
		if err := s.out.SendPacket(rc, p); err != nil {
			return err
		}
	}
	return nil
}

// printingSink prints every payload it receives, in order, then returns
// once it observes end-of-stream.
type printingSink struct {
	name string
	in   *fbp.InputPort
}

func newPrintingSink(name string) *printingSink {
	return &printingSink{name: name}
}

func (s *printingSink) Name() string    { return s.name }
func (s *printingSink) Keepalive() bool { return true }
func (s *printingSink) Initialize(ic *fbp.InitContext) {
	s.in = ic.InputPort("IN")
}
func (s *printingSink) Run(rc *fbp.RunContext) error {
	for {
		payload, oc, err := s.in.Receive(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		fmt.Printf("  %s <- %v\n", s.name, payload)
	}
}

// buildS1 builds the linear pipeline scenario: Source -> Identity -> Sink.
func buildS1() *fbp.Graph {
	g := fbp.NewGraph()
	src := newSource("Source", "1", "2", "a", "3", "b", "c", "4", "5", "d")
	id := newPassThrough("Identity")
	sink := newPrintingSink("Sink")

	_ = g.AddComponent(src)
	_ = g.AddComponent(id)
	_ = g.AddComponent(sink)
	_ = g.Connect("Source", "OUT", "Identity", "IN")
	_ = g.Connect("Identity", "OUT", "Sink", "IN")
	return g
}

// passThrough forwards every packet it receives to OUT unchanged.
type passThrough struct {
	name string
	in   *fbp.InputPort
	out  *fbp.OutputPort
}

func newPassThrough(name string) *passThrough {
	return &passThrough{name: name}
}

func (p *passThrough) Name() string    { return p.name }
func (p *passThrough) Keepalive() bool { return true }
func (p *passThrough) Initialize(ic *fbp.InitContext) {
	p.in = ic.InputPort("IN", fbp.Pair("OUT"))
	p.out = ic.OutputPort("OUT")
}
func (p *passThrough) Run(rc *fbp.RunContext) error {
	for {
		oc, err := p.in.ReceivePacket(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		if err := p.out.SendPacket(rc, oc.Packet); err != nil {
			return err
		}
	}
}

// buildS5 builds the backpressure scenario: a capacity-1 connection carrying
// a large burst of packets from Source straight to Sink.
func buildS5() *fbp.Graph {
	g := fbp.NewGraph()
	var values []string
	for i := 0; i < 1000; i++ {
		values = append(values, fmt.Sprintf("pkt-%d", i))
	}
	src := newSource("Source", values...)
	sink := newPrintingSink("Sink")

	_ = g.AddComponent(src)
	_ = g.AddComponent(sink)
	_ = g.Connect("Source", "OUT", "Sink", "IN", fbp.WithCapacity(1))
	return g
}

// buildS7 builds the IIP-only scenario: Sink has no inbound connection, only
// an initial information packet.
func buildS7() *fbp.Graph {
	g := fbp.NewGraph()
	sink := newPrintingSink("Sink")
	_ = g.AddComponent(sink)
	_ = g.SetInitialPacket("Sink", "IN", "/etc/fbpdemo.conf")
	return g
}

// structureFrame and structureBuilder reconstruct the nested substream/map
// structure implied by a stream of OPEN/CLOSE/MAP_OPEN/MAP_CLOSE/SWITCH
// control packets, the way a display-oriented sink would for a human
// reading the CLI's output.
type structureFrame struct {
	isMap  bool
	list   []any
	m      map[string][]any
	active string
}

type structureBuilder struct {
	stack []*structureFrame
}

func newStructureBuilder() *structureBuilder {
	return &structureBuilder{stack: []*structureFrame{{}}}
}

func (b *structureBuilder) top() *structureFrame { return b.stack[len(b.stack)-1] }

func (b *structureBuilder) appendToParent(v any) {
	parent := b.top()
	if parent.isMap {
		parent.m[parent.active] = append(parent.m[parent.active], v)
	} else {
		parent.list = append(parent.list, v)
	}
}

func (b *structureBuilder) apply(pkt fbp.Packet) {
	switch {
	case pkt.IsData():
		b.appendToParent(pkt.Payload())
	case pkt.Kind() == fbp.Open:
		b.stack = append(b.stack, &structureFrame{})
	case pkt.Kind() == fbp.Close:
		closed := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.appendToParent(closed.list)
	case pkt.Kind() == fbp.MapOpen:
		b.stack = append(b.stack, &structureFrame{isMap: true, m: map[string][]any{}})
	case pkt.Kind() == fbp.MapClose:
		closed := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.appendToParent(closed.m)
	case pkt.Kind() == fbp.Switch:
		b.top().active = pkt.Arg()
	}
}

func (b *structureBuilder) Result() []any { return b.stack[0].list }

// structureSink prints the reconstructed nested structure of everything it
// receives on its subscribed channel once the stream ends.
type structureSink struct {
	name    string
	channel string
	in      *fbp.InputPort
	b       *structureBuilder
}

func newStructureSink(name, channel string) *structureSink {
	return &structureSink{name: name, channel: channel, b: newStructureBuilder()}
}

func (s *structureSink) Name() string    { return s.name }
func (s *structureSink) Keepalive() bool { return true }
func (s *structureSink) Initialize(ic *fbp.InitContext) {
	if s.channel != "" {
		ic.Subscribe(s.channel)
	}
	s.in = ic.InputPort("IN")
}
func (s *structureSink) Run(rc *fbp.RunContext) error {
	for {
		oc, err := s.in.ReceivePacket(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			fmt.Printf("  %s structure: %v\n", s.name, s.b.Result())
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		s.b.apply(oc.Packet)
	}
}

// buildS2 builds the bracketed-substreams scenario: Source -> Sink
// rebuilding S2's nested-list structure.
func buildS2() *fbp.Graph {
	g := fbp.NewGraph()
	src := newPacketSource("Source",
		fbp.Data("1", ""), fbp.Data("2", ""),
		fbp.Control(fbp.Open, "", ""), fbp.Data("a", ""), fbp.Control(fbp.Close, "", ""),
		fbp.Data("3", ""),
		fbp.Control(fbp.Open, "", ""), fbp.Data("b", ""), fbp.Data("c", ""), fbp.Control(fbp.Close, "", ""),
		fbp.Data("4", ""), fbp.Data("5", ""),
		fbp.Control(fbp.Open, "", ""), fbp.Data("d", ""), fbp.Control(fbp.Close, "", ""),
	)
	sink := newStructureSink("Sink", "")
	_ = g.AddComponent(src)
	_ = g.AddComponent(sink)
	_ = g.Connect("Source", "OUT", "Sink", "IN")
	return g
}

// buildS3 builds the map-stream scenario: Source -> Sink rebuilding S3's
// num/alpha map.
func buildS3() *fbp.Graph {
	g := fbp.NewGraph()
	src := newPacketSource("Source",
		fbp.Control(fbp.MapOpen, "", ""),
		fbp.Control(fbp.Switch, "", "num"), fbp.Data("1", ""), fbp.Data("2", ""), fbp.Data("3", ""),
		fbp.Control(fbp.Switch, "", "alpha"), fbp.Data("a", ""), fbp.Data("b", ""),
		fbp.Control(fbp.Switch, "", "num"), fbp.Data("4", ""), fbp.Data("5", ""),
		fbp.Control(fbp.Switch, "", "alpha"), fbp.Data("c", ""), fbp.Data("d", ""),
		fbp.Control(fbp.MapClose, "", ""),
	)
	sink := newStructureSink("Sink", "")
	_ = g.AddComponent(src)
	_ = g.AddComponent(sink)
	_ = g.Connect("Source", "OUT", "Sink", "IN")
	return g
}

// tee is a long-running component with one input and a fixed set of
// outputs; it broadcasts every packet it receives, unchanged, to all of
// them — how this demo gives two independently-subscribed sinks a view of
// the same stream, since a Connection is strictly point-to-point.
type tee struct {
	name    string
	outputs []string
	in      *fbp.InputPort
	outs    []*fbp.OutputPort
}

func newTee(name string, outputs ...string) *tee {
	return &tee{name: name, outputs: outputs}
}

func (t *tee) Name() string    { return t.name }
func (t *tee) Keepalive() bool { return true }
func (t *tee) Initialize(ic *fbp.InitContext) {
	t.in = ic.InputPort("IN")
	for _, o := range t.outputs {
		t.outs = append(t.outs, ic.OutputPort(o))
	}
}
func (t *tee) Run(rc *fbp.RunContext) error {
	for {
		oc, err := t.in.ReceiveRaw(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		for _, out := range t.outs {
			if err := out.SendPacket(rc, oc.Packet); err != nil {
				return err
			}
		}
	}
}

// buildS4 builds the dual-channel scenario: one shared data stream fanned
// out to a "default"-subscribed sink (S2's structure) and an
// "alphanum"-subscribed sink (S3's structure), each ignoring the other's
// control packets.
func buildS4() *fbp.Graph {
	g := fbp.NewGraph()
	src := newPacketSource("Source",
		fbp.Control(fbp.MapOpen, "alphanum", ""),
		fbp.Control(fbp.Switch, "alphanum", "num"),
		fbp.Data("1", ""), fbp.Data("2", ""),
		fbp.Control(fbp.Switch, "alphanum", "alpha"),
		fbp.Control(fbp.Open, "default", ""),
		fbp.Data("a", ""),
		fbp.Control(fbp.Close, "default", ""),
		fbp.Control(fbp.Switch, "alphanum", "num"),
		fbp.Data("3", ""),
		fbp.Control(fbp.Switch, "alphanum", "alpha"),
		fbp.Control(fbp.Open, "default", ""),
		fbp.Data("b", ""), fbp.Data("c", ""),
		fbp.Control(fbp.Close, "default", ""),
		fbp.Control(fbp.Switch, "alphanum", "num"),
		fbp.Data("4", ""), fbp.Data("5", ""),
		fbp.Control(fbp.Switch, "alphanum", "alpha"),
		fbp.Control(fbp.Open, "default", ""),
		fbp.Data("d", ""),
		fbp.Control(fbp.Close, "default", ""),
		fbp.Control(fbp.MapClose, "alphanum", ""),
	)
	fanout := newTee("Fanout", "A", "B")
	defaultSink := newStructureSink("DefaultSink", "")
	alphanumSink := newStructureSink("AlphanumSink", "alphanum")

	_ = g.AddComponent(src)
	_ = g.AddComponent(fanout)
	_ = g.AddComponent(defaultSink)
	_ = g.AddComponent(alphanumSink)
	_ = g.Connect("Source", "OUT", "Fanout", "IN")
	_ = g.Connect("Fanout", "A", "DefaultSink", "IN")
	_ = g.Connect("Fanout", "B", "AlphanumSink", "IN")
	return g
}

var scenarios = map[string]func() *fbp.Graph{
	"s1": buildS1,
	"s2": buildS2,
	"s3": buildS3,
	"s4": buildS4,
	"s5": buildS5,
	"s7": buildS7,
}
