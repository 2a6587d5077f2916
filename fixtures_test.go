package fbp

// Test fixtures shared across this package's test files: small components
// exercising the public Component/Port surface the way a real caller
// would, not the premade component library spec.md explicitly places out
// of scope.

// source emits a fixed sequence of packets on OUT, then returns.
type source struct {
	name    string
	packets []Packet
	out     *OutputPort
}

func newSource(name string, packets ...Packet) *source {
	return &source{name: name, packets: packets}
}

func (s *source) Name() string { return s.name }

func (s *source) Initialize(ic *InitContext) {
	s.out = ic.OutputPort("OUT")
}

func (s *source) Run(rc *RunContext) error {
	for _, p := range s.packets {
		if err := s.out.SendPacket(rc, p); err != nil {
			return err
		}
	}
	return nil
}

// collectSink is a long-running terminal component that gathers every
// delivered payload, in order, into items.
type collectSink struct {
	name  string
	in    *InputPort
	items []any
}

func newCollectSink(name string) *collectSink {
	return &collectSink{name: name}
}

func (s *collectSink) Name() string { return s.name }

func (s *collectSink) Keepalive() bool { return true }

func (s *collectSink) Initialize(ic *InitContext) {
	s.in = ic.InputPort("IN")
}

func (s *collectSink) Run(rc *RunContext) error {
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
		s.items = append(s.items, payload)
	}
}

// passThrough is a long-running middle component pairing IN to OUT: every
// packet it is handed (data or subscribed-channel control) is forwarded
// unchanged. Foreign-channel control packets never reach Run at all — the
// InputPort forwards those to the paired output on its own.
type passThrough struct {
	name    string
	channel string
	in      *InputPort
	out     *OutputPort
}

func newPassThrough(name, channel string) *passThrough {
	return &passThrough{name: name, channel: channel}
}

func (p *passThrough) Name() string    { return p.name }
func (p *passThrough) Keepalive() bool { return true }

func (p *passThrough) Initialize(ic *InitContext) {
	if p.channel != "" {
		ic.Subscribe(p.channel)
	}
	p.in = ic.InputPort("IN", Pair("OUT"))
	p.out = ic.OutputPort("OUT")
}

func (p *passThrough) Run(rc *RunContext) error {
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

// tee is a long-running component with one input and a fixed set of
// outputs; it broadcasts every packet it receives (data or control,
// regardless of channel) to all of them, unchanged. It is how this test
// suite gives two independently-subscribed components a view of the same
// stream, since a Connection itself is strictly point-to-point (spec.md
// §3's "at-most-one-receiver" invariant).
type tee struct {
	name    string
	outputs []string
	in      *InputPort
	outs    []*OutputPort
}

func newTee(name string, outputs ...string) *tee {
	return &tee{name: name, outputs: outputs}
}

func (t *tee) Name() string    { return t.name }
func (t *tee) Keepalive() bool { return true }

func (t *tee) Initialize(ic *InitContext) {
	t.in = ic.InputPort("IN")
	for _, o := range t.outputs {
		t.outs = append(t.outs, ic.OutputPort(o))
	}
}

func (t *tee) Run(rc *RunContext) error {
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

// structureBuilder reconstructs the nested substream/map structure implied
// by a stream of OPEN/CLOSE/MAP_OPEN/MAP_CLOSE/SWITCH control packets, the
// way a real sink component would for display or further processing.
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

func (b *structureBuilder) top() *structureFrame {
	return b.stack[len(b.stack)-1]
}

func (b *structureBuilder) appendToParent(v any) {
	parent := b.top()
	if parent.isMap {
		parent.m[parent.active] = append(parent.m[parent.active], v)
	} else {
		parent.list = append(parent.list, v)
	}
}

func (b *structureBuilder) Data(payload any) {
	b.appendToParent(payload)
}

func (b *structureBuilder) Open() {
	b.stack = append(b.stack, &structureFrame{})
}

func (b *structureBuilder) Close() {
	closed := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.appendToParent(closed.list)
}

func (b *structureBuilder) MapOpen() {
	b.stack = append(b.stack, &structureFrame{isMap: true, m: map[string][]any{}})
}

func (b *structureBuilder) MapClose() {
	closed := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.appendToParent(closed.m)
}

func (b *structureBuilder) Switch(name string) {
	b.top().active = name
}

func (b *structureBuilder) Result() []any {
	return b.stack[0].list
}

// structureSink is a long-running terminal component that feeds every
// packet it is delivered (on its subscribed channel) into a
// structureBuilder.
type structureSink struct {
	name    string
	channel string
	in      *InputPort
	b       *structureBuilder
}

func newStructureSink(name, channel string) *structureSink {
	return &structureSink{name: name, channel: channel, b: newStructureBuilder()}
}

func (s *structureSink) Name() string    { return s.name }
func (s *structureSink) Keepalive() bool { return true }

func (s *structureSink) Initialize(ic *InitContext) {
	if s.channel != "" {
		ic.Subscribe(s.channel)
	}
	s.in = ic.InputPort("IN")
}

func (s *structureSink) Run(rc *RunContext) error {
	for {
		oc, err := s.in.ReceivePacket(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		pkt := oc.Packet
		switch {
		case pkt.IsData():
			s.b.Data(pkt.Payload())
		case pkt.Kind() == Open:
			s.b.Open()
		case pkt.Kind() == Close:
			s.b.Close()
		case pkt.Kind() == MapOpen:
			s.b.MapOpen()
		case pkt.Kind() == MapClose:
			s.b.MapClose()
		case pkt.Kind() == Switch:
			s.b.Switch(pkt.Arg())
		}
	}
}

// deadlockEcho is a long-running component that always receives before it
// ever sends — used to build S6's two-component deadlock cycle.
type deadlockEcho struct {
	name string
	in   *InputPort
	out  *OutputPort
}

func newDeadlockEcho(name string) *deadlockEcho {
	return &deadlockEcho{name: name}
}

func (d *deadlockEcho) Name() string    { return d.name }
func (d *deadlockEcho) Keepalive() bool { return true }

func (d *deadlockEcho) Initialize(ic *InitContext) {
	d.in = ic.InputPort("IN", Pair("OUT"))
	d.out = ic.OutputPort("OUT")
}

func (d *deadlockEcho) Run(rc *RunContext) error {
	for {
		oc, err := d.in.ReceivePacket(rc)
		if err != nil {
			return err
		}
		if oc.IsEndOfStream() {
			return nil
		}
		if oc.IsTimeout() {
			continue
		}
		if err := d.out.SendPacket(rc, oc.Packet); err != nil {
			return err
		}
	}
}
