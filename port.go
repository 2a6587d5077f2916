package fbp

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// componentShell wraps a user Component with the bookkeeping the runtime
// needs: its declared ports, its subscribed channel, and its lifecycle
// state. Shells, not user Components, are what Graph and Executor operate
// on; this keeps component authors' types free of scheduler internals.
type componentShell struct {
	name    string
	channel string
	user    Component

	inputs  map[string]*InputPort
	outputs map[string]*OutputPort

	logger *log.Entry

	// sched is nil until an Executor takes ownership of the graph this
	// shell belongs to; suspend/resume/setTerminal are no-ops with
	// respect to scheduler bookkeeping until it is set.
	sched *Executor

	mu        sync.Mutex
	state     ComponentState
	blockedOn string
}

func newComponentShell(c Component) *componentShell {
	s := &componentShell{
		name:    c.Name(),
		channel: DefaultChannel,
		user:    c,
		inputs:  map[string]*InputPort{},
		outputs: map[string]*OutputPort{},
	}
	s.logger = log.WithField("component", s.name)
	return s
}

// bracketEntry is one frame of a component's per-input-port bracket stack
// (spec.md §4.3): either an open substream, or an open map with its
// currently active namespace ("" means no SWITCH has been seen yet, i.e.
// the ⊥ namespace).
type bracketEntry struct {
	isMap  bool
	active string
}

// InputPort is a named, at-most-one-connection input endpoint belonging to
// exactly one component.
type InputPort struct {
	name   string
	owner  *componentShell
	paired string

	conn *Connection

	iips     []Packet
	iipIndex int

	stack []bracketEntry
}

// Name returns the port's name.
func (p *InputPort) Name() string { return p.name }

// Connected reports whether an upstream output port is wired to this input.
func (p *InputPort) Connected() bool { return p.conn != nil }

func (p *InputPort) pairedOutput() (*OutputPort, bool) {
	if p.paired != "" {
		out, ok := p.owner.outputs[p.paired]
		return out, ok
	}
	if len(p.owner.outputs) == 1 {
		for _, out := range p.owner.outputs {
			return out, true
		}
	}
	return nil, false
}

// ReceivePacket returns the next packet of interest to the owning component
// on its subscribed channel: an IIP, a data packet, or a subscribed-channel
// control packet with the bracket stack already updated. Foreign-channel
// control packets are forwarded unchanged to the paired output port and
// never returned to the caller. An optional timeout bounds how long the
// call blocks; omit it to block until a packet arrives, the connection
// closes, or the run is canceled.
func (p *InputPort) ReceivePacket(rc *RunContext, timeout ...time.Duration) (Outcome, error) {
	for {
		if p.iipIndex < len(p.iips) {
			pkt := p.iips[p.iipIndex]
			p.iipIndex++
			return Outcome{Kind: OutcomePacket, Packet: pkt}, nil
		}

		if p.conn == nil {
			return endOfStreamOutcome, nil
		}

		ctx, cancel := p.deadline(rc, timeout...)
		rc.shell.suspend(StateSuspendedRecv, p.conn.Desc())
		pkt, res := p.conn.receive(ctx)
		rc.shell.resume()
		if cancel != nil {
			cancel()
		}

		switch res {
		case recvClosed:
			if len(p.stack) > 0 {
				return Outcome{}, newError(CodeUnclosedBrackets, p.owner.name, p.name,
					fmt.Errorf("end of stream with %d unclosed bracket(s)", len(p.stack)))
			}
			return endOfStreamOutcome, nil
		case recvCanceled:
			select {
			case <-rc.ctx.Done():
				if len(p.stack) > 0 {
					return Outcome{}, newError(CodeUnclosedBrackets, p.owner.name, p.name,
						fmt.Errorf("canceled with %d unclosed bracket(s)", len(p.stack)))
				}
				return endOfStreamOutcome, nil
			default:
				return timeoutOutcome, nil
			}
		}

		if pkt.IsData() {
			return Outcome{Kind: OutcomePacket, Packet: pkt}, nil
		}

		if pkt.Channel() == p.owner.channel {
			if err := p.applyBracket(pkt); err != nil {
				return Outcome{}, err
			}
			return Outcome{Kind: OutcomePacket, Packet: pkt}, nil
		}

		out, ok := p.pairedOutput()
		if !ok {
			p.owner.logger.WithFields(log.Fields{
				"input_port": p.name,
				"channel":    pkt.Channel(),
				"kind":       pkt.Kind(),
			}).Warn("dropping foreign-channel control packet: no paired output port")
			continue
		}
		if err := out.SendPacket(rc, pkt); err != nil {
			return Outcome{}, err
		}
	}
}

// ReceiveRaw returns the next packet delivered to this port exactly as it
// arrived — IIP, data, or control, on any channel — without applying the
// subscribed-channel filtering, bracket tracking, or foreign-packet
// forwarding that ReceivePacket performs. It exists for fan-out components
// (a "tee") that need every downstream view to see the unfiltered stream so
// each can apply its own channel subscription independently; ordinary
// components should use ReceivePacket or Receive instead.
func (p *InputPort) ReceiveRaw(rc *RunContext, timeout ...time.Duration) (Outcome, error) {
	if p.iipIndex < len(p.iips) {
		pkt := p.iips[p.iipIndex]
		p.iipIndex++
		return Outcome{Kind: OutcomePacket, Packet: pkt}, nil
	}

	if p.conn == nil {
		return endOfStreamOutcome, nil
	}

	ctx, cancel := p.deadline(rc, timeout...)
	rc.shell.suspend(StateSuspendedRecv, p.conn.Desc())
	pkt, res := p.conn.receive(ctx)
	rc.shell.resume()
	if cancel != nil {
		cancel()
	}

	switch res {
	case recvClosed:
		return endOfStreamOutcome, nil
	case recvCanceled:
		select {
		case <-rc.ctx.Done():
			return endOfStreamOutcome, nil
		default:
			return timeoutOutcome, nil
		}
	}
	return Outcome{Kind: OutcomePacket, Packet: pkt}, nil
}

// Receive is the payload-only convenience form of ReceivePacket.
func (p *InputPort) Receive(rc *RunContext, timeout ...time.Duration) (any, Outcome, error) {
	oc, err := p.ReceivePacket(rc, timeout...)
	if err != nil {
		return nil, Outcome{}, err
	}
	if oc.Kind == OutcomePacket {
		return oc.Packet.Payload(), oc, nil
	}
	return nil, oc, nil
}

func (p *InputPort) deadline(rc *RunContext, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	if len(timeout) == 0 || timeout[0] <= 0 {
		return rc.ctx, nil
	}
	return context.WithTimeout(rc.ctx, timeout[0])
}

func (p *InputPort) applyBracket(pkt Packet) error {
	switch pkt.Kind() {
	case Open:
		p.stack = append(p.stack, bracketEntry{})
		return nil
	case Close:
		if len(p.stack) == 0 || p.stack[len(p.stack)-1].isMap {
			return newError(CodeUnbalancedClose, p.owner.name, p.name, fmt.Errorf("CLOSE with no matching OPEN"))
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	case MapOpen:
		p.stack = append(p.stack, bracketEntry{isMap: true})
		return nil
	case MapClose:
		if len(p.stack) == 0 || !p.stack[len(p.stack)-1].isMap {
			return newError(CodeUnbalancedMapClose, p.owner.name, p.name, fmt.Errorf("MAP_CLOSE with no matching MAP_OPEN"))
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	case Switch:
		if len(p.stack) == 0 || !p.stack[len(p.stack)-1].isMap {
			return newError(CodeSwitchOutsideMap, p.owner.name, p.name, fmt.Errorf("SWITCH outside of an open map"))
		}
		p.stack[len(p.stack)-1].active = pkt.Arg()
		return nil
	}
	return nil
}

// OutputPort is a named, at-most-one-connection output endpoint belonging
// to exactly one component.
type OutputPort struct {
	name  string
	owner *componentShell
	conn  *Connection
}

// Name returns the port's name.
func (p *OutputPort) Name() string { return p.name }

// Connected reports whether this output is wired to a downstream input.
func (p *OutputPort) Connected() bool { return p.conn != nil }

// Send sends a data packet carrying payload on the component's subscribed
// channel. Sending on an unconnected output silently drops the packet,
// allowing partially wired components (spec.md §4.3).
func (p *OutputPort) Send(rc *RunContext, payload any) error {
	return p.SendPacket(rc, Data(payload, p.owner.channel))
}

// SendPacket sends pkt as-is, preserving its channel tag.
func (p *OutputPort) SendPacket(rc *RunContext, pkt Packet) error {
	if p.conn == nil {
		return nil
	}
	rc.shell.suspend(StateSuspendedSend, p.conn.Desc())
	res := p.conn.send(rc.ctx, pkt)
	rc.shell.resume()

	switch res {
	case sendOK:
		return nil
	case sendClosed:
		return newError(CodeConnectionClosed, p.owner.name, p.name, fmt.Errorf("send on closed connection %s", p.conn.Desc()))
	default: // sendCanceled
		return newError(CodeConnectionClosed, p.owner.name, p.name, fmt.Errorf("send canceled on connection %s", p.conn.Desc()))
	}
}

// Open sends an OPEN control packet on the subscribed channel, beginning a
// substream.
func (p *OutputPort) Open(rc *RunContext) error {
	return p.SendPacket(rc, Control(Open, p.owner.channel, ""))
}

// Close sends a CLOSE control packet on the subscribed channel, ending the
// innermost open substream.
func (p *OutputPort) Close(rc *RunContext) error {
	return p.SendPacket(rc, Control(Close, p.owner.channel, ""))
}

// MapOpen sends a MAP_OPEN control packet on the subscribed channel.
func (p *OutputPort) MapOpen(rc *RunContext) error {
	return p.SendPacket(rc, Control(MapOpen, p.owner.channel, ""))
}

// MapClose sends a MAP_CLOSE control packet on the subscribed channel.
func (p *OutputPort) MapClose(rc *RunContext) error {
	return p.SendPacket(rc, Control(MapClose, p.owner.channel, ""))
}

// Switch sends a SWITCH control packet naming the active namespace of the
// innermost enclosing map on the subscribed channel.
func (p *OutputPort) Switch(rc *RunContext, namespace string) error {
	return p.SendPacket(rc, Control(Switch, p.owner.channel, namespace))
}
