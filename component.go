package fbp

import (
	"context"
	"runtime"
	"sync/atomic"
)

// ComponentState is a component's position in the lifecycle machine from
// spec.md §4.3:
//
//	NOT_INITIALIZED -> INITIALIZED -> ACTIVE <-> {SUSP_SEND, SUSP_RECV} -> TERMINATED
//	                                                                    \-> ERROR
type ComponentState int

const (
	StateNotInitialized ComponentState = iota
	StateInitialized
	StateActive
	StateSuspendedSend
	StateSuspendedRecv
	StateTerminated
	StateError
)

func (s ComponentState) String() string {
	switch s {
	case StateNotInitialized:
		return "NOT_INITIALIZED"
	case StateInitialized:
		return "INITIALIZED"
	case StateActive:
		return "ACTIVE"
	case StateSuspendedSend:
		return "SUSP_SEND"
	case StateSuspendedRecv:
		return "SUSP_RECV"
	case StateTerminated:
		return "TERMINATED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Component is the user-supplied unit of work. Implementations declare
// their ports in Initialize and do their work in Run.
type Component interface {
	// Name returns the component's name, unique within its graph.
	Name() string
	// Initialize declares the component's ports and subscribed channel via
	// ic. It is invoked exactly once, synchronously, when the component is
	// added to a Graph — before any connection referencing its ports can
	// be made.
	Initialize(ic *InitContext)
	// Run performs the component's work. Once-through components (the
	// default) return after a single pass; long-running components (see
	// LongRunning) loop until they observe end-of-stream on every input or
	// call RunContext.Terminate.
	Run(rc *RunContext) error
}

// LongRunning is implemented by components that declare "keepalive"
// run semantics (spec.md §4.3): Run is expected to loop rather than return
// after a single pass. Components that do not implement this interface are
// treated as once-through.
type LongRunning interface {
	// Keepalive reports whether this component uses long-running run
	// semantics.
	Keepalive() bool
}

func isKeepalive(c Component) bool {
	lr, ok := c.(LongRunning)
	return ok && lr.Keepalive()
}

// InitContext is passed to Component.Initialize and is the only way to
// declare a component's ports and subscribed channel.
type InitContext struct {
	shell *componentShell
}

// InputPort declares a named input port. opts may set the port's paired
// output port for foreign-channel control forwarding (see Pair).
func (ic *InitContext) InputPort(name string, opts ...PortOption) *InputPort {
	p := &InputPort{name: name, owner: ic.shell}
	for _, opt := range opts {
		opt(p)
	}
	ic.shell.inputs[name] = p
	return p
}

// OutputPort declares a named output port.
func (ic *InitContext) OutputPort(name string) *OutputPort {
	p := &OutputPort{name: name, owner: ic.shell}
	ic.shell.outputs[name] = p
	return p
}

// Subscribe sets the component's subscribed channel. Components default to
// DefaultChannel when this is never called.
func (ic *InitContext) Subscribe(channel string) {
	if channel == "" {
		channel = DefaultChannel
	}
	ic.shell.channel = channel
}

// PortOption configures an InputPort at declaration time.
type PortOption func(*InputPort)

// Pair declares outputPortName as the paired output port used to forward
// foreign-channel control packets arriving on this input port (spec.md
// §4.3's pass-through policy). Without Pair, the runtime falls back to the
// component's single output port if exactly one exists.
func Pair(outputPortName string) PortOption {
	return func(p *InputPort) { p.paired = outputPortName }
}

// RunContext is passed to Component.Run and carries the cancellation
// context for the run, plus the voluntary suspend/terminate primitives from
// spec.md §4.3/§4.4.
type RunContext struct {
	ctx        context.Context
	shell      *componentShell
	ex         *Executor
	terminated int32
}

// Context returns the context that is done when the executor cancels the
// run (shutdown, escalation, or deadlock unwind). Components performing any
// operation not already integrated with the scheduler (an external I/O
// call, say) should select on this alongside that operation.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// Suspend voluntarily yields to other runnable components without blocking
// on a port operation. It is a cooperative yield point: a long-running
// component with no pending port operation but more work queued internally
// can call this between units of work so other components get a turn.
func (rc *RunContext) Suspend() {
	select {
	case <-rc.ctx.Done():
	default:
		runtime.Gosched()
	}
}

// Terminate requests that this run loop end. A long-running component
// should check ShouldTerminate and return from Run soon after calling this
// (or after some other component signaled it via a control packet); Run
// returning is what actually completes the TERMINATED transition.
func (rc *RunContext) Terminate() {
	atomic.StoreInt32(&rc.terminated, 1)
}

// ShouldTerminate reports whether Terminate has been called.
func (rc *RunContext) ShouldTerminate() bool {
	return atomic.LoadInt32(&rc.terminated) != 0
}
