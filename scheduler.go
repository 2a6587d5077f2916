package fbp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// suspend transitions the shell to state (SUSP_SEND or SUSP_RECV), blocked
// on the connection described by connDesc, and tells the owning Executor
// that a transition happened. Call resume once the blocking call returns.
func (s *componentShell) suspend(state ComponentState, connDesc string) {
	s.mu.Lock()
	s.state = state
	s.blockedOn = connDesc
	s.mu.Unlock()
	if s.sched != nil {
		s.sched.noteTransition(s.name, state, connDesc)
	}
}

// resume transitions the shell back to ACTIVE after a blocking send/receive
// returns.
func (s *componentShell) resume() {
	s.mu.Lock()
	s.state = StateActive
	s.blockedOn = ""
	s.mu.Unlock()
	if s.sched != nil {
		s.sched.noteTransition(s.name, StateActive, "")
	}
}

// setTerminal transitions the shell to TERMINATED or ERROR. Unlike
// suspend/resume this is a one-way transition for the lifetime of the run.
func (s *componentShell) setTerminal(state ComponentState) {
	s.mu.Lock()
	s.state = state
	s.blockedOn = ""
	s.mu.Unlock()
	if s.sched != nil {
		s.sched.noteTransition(s.name, state, "")
	}
}

func (s *componentShell) snapshot() (ComponentState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.blockedOn
}

// ExecutorOption configures an Executor at construction time.
type ExecutorOption func(*Executor)

// WithWatchdogInterval sets how often the Executor checks for stalled
// progress. The default is 5 milliseconds, which is frequent enough to
// make DEADLOCK reporting feel immediate in tests while staying cheap for
// long-running graphs.
func WithWatchdogInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.watchdogInterval = d }
}

// WithGracePeriod sets how long Shutdown waits for components to observe
// cancellation and return from Run before escalating to hard termination
// (spec.md §4.4).
func WithGracePeriod(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.gracePeriod = d }
}

// WithMetrics attaches m, which the Executor updates as components change
// state and terminate. The Executor does not update connection queue depth;
// that is sampled through Metrics.ObserveConnectionDepth.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// Executor drives every component in a Graph as a cooperative task
// (spec.md §4.4). Components run as goroutines; the Executor itself never
// runs user code. Its job is purely the bookkeeping spec.md assigns to the
// scheduler: tracking suspension, detecting deadlock and quiescence, and
// propagating shutdown.
type Executor struct {
	graph *Graph

	watchdogInterval time.Duration
	gracePeriod      time.Duration
	metrics          *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	progress int64

	mu           sync.Mutex
	shuttingDown bool

	errMu    sync.Mutex
	firstErr error

	wg sync.WaitGroup
}

// NewExecutor returns an Executor for g. g must not be modified after this
// call.
func NewExecutor(g *Graph, opts ...ExecutorOption) *Executor {
	e := &Executor{
		graph:            g,
		watchdogInterval: 5 * time.Millisecond,
		gracePeriod:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) noteTransition(component string, state ComponentState, connDesc string) {
	atomic.AddInt64(&e.progress, 1)
	if e.metrics != nil {
		e.metrics.setComponentState(component, state)
	}
	switch state {
	case StateError:
		log.WithFields(log.Fields{"component": component}).Error("component entered ERROR state")
	case StateSuspendedSend, StateSuspendedRecv:
		log.WithFields(log.Fields{"component": component, "state": state.String(), "connection": connDesc}).Debug("component suspended")
	}
}

func (e *Executor) recordError(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.firstErr == nil {
		e.firstErr = err
	}
}

// Execute validates the graph, runs every component to completion, and
// returns the first component error (if any) or a DEADLOCK error if the
// scheduler ever finds itself with no runnable component and at least one
// non-terminal one (spec.md §4.4, §6 "Exit conditions").
func (e *Executor) Execute() error {
	if err := e.graph.validate(); err != nil {
		return err
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	defer e.cancel()

	shells := e.graph.shellsInOrder()
	for _, s := range shells {
		s.sched = e
	}

	doneCh := make(chan struct{})
	for _, s := range shells {
		e.wg.Add(1)
		go e.runComponent(s)
	}
	go func() {
		e.wg.Wait()
		close(doneCh)
	}()

	deadlockCh := e.watchdog(shells, doneCh)

	select {
	case <-doneCh:
	case <-deadlockCh:
		e.cancel()
		<-doneCh
	}

	return e.firstErrLocked()
}

func (e *Executor) firstErrLocked() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.firstErr
}

func (e *Executor) runComponent(s *componentShell) {
	defer e.wg.Done()

	s.setTerminal(StateActive)
	rc := &RunContext{ctx: e.ctx, shell: s, ex: e}

	err := e.callRun(s, rc)
	if err != nil {
		s.setTerminal(StateError)
		e.recordError(wrapComponentError(s.name, err))
		if e.metrics != nil {
			e.metrics.incTerminated(s.name, false)
		}
	} else {
		if isKeepalive(s.user) {
			s.logger.Debug("long-running component returned")
		}
		s.setTerminal(StateTerminated)
		if e.metrics != nil {
			e.metrics.incTerminated(s.name, true)
		}
	}

	for _, out := range s.outputs {
		if out.conn != nil {
			out.conn.Close()
		}
	}
}

func wrapComponentError(name string, err error) error {
	if fe, ok := err.(*Error); ok {
		return fe
	}
	return newError(CodeComponentFailed, name, "", err)
}

func (e *Executor) callRun(s *componentShell, rc *RunContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in component %q: %v", s.name, r)
		}
	}()
	return s.user.Run(rc)
}

// watchdog periodically checks whether the progress counter has advanced
// since the last tick. Two consecutive stalled ticks with every non-
// terminal component suspended is reported as DEADLOCK (spec.md §4.4,
// §8.6); the returned channel is closed exactly once, when that happens.
func (e *Executor) watchdog(shells []*componentShell, doneCh <-chan struct{}) <-chan struct{} {
	deadlockCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.watchdogInterval)
		defer ticker.Stop()
		var last int64 = -1
		stalls := 0
		for {
			select {
			case <-doneCh:
				return
			case <-ticker.C:
				cur := atomic.LoadInt64(&e.progress)
				if cur == last {
					stalls++
				} else {
					stalls = 0
				}
				last = cur
				if stalls >= 2 && e.isDeadlocked(shells) {
					e.recordError(e.deadlockError(shells))
					close(deadlockCh)
					return
				}
			}
		}
	}()
	return deadlockCh
}

func (e *Executor) isDeadlocked(shells []*componentShell) bool {
	sawNonTerminal := false
	for _, s := range shells {
		state, _ := s.snapshot()
		switch state {
		case StateTerminated, StateError:
			continue
		case StateSuspendedSend, StateSuspendedRecv:
			sawNonTerminal = true
		default:
			// ACTIVE or INITIALIZED: genuinely running or about to run;
			// the system is not stuck, just possibly slow.
			return false
		}
	}
	return sawNonTerminal
}

func (e *Executor) deadlockError(shells []*componentShell) error {
	var stuck []string
	for _, s := range shells {
		state, conn := s.snapshot()
		if state == StateSuspendedSend || state == StateSuspendedRecv {
			stuck = append(stuck, fmt.Sprintf("%s(%s on %s)", s.name, state, conn))
		}
	}
	sort.Strings(stuck)
	return newError(CodeDeadlock, "", "", fmt.Errorf("no component can make progress: %s", strings.Join(stuck, ", ")))
}

// Shutdown cancels the executor's run context, which closes every
// component's cancellation point: blocked Send/Receive calls observe
// ctx.Done() and return CONNECTION_CLOSED/END_OF_STREAM, and each
// component is expected to wind down soon after. A second call escalates:
// any component still not TERMINATED/ERROR when the grace period (or the
// second call, whichever first) elapses is marked ERROR (spec.md §4.4).
// Execute still returns only once every component's Run has returned,
// including the Run of a component marked ERROR this way.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	alreadyShuttingDown := e.shuttingDown
	e.shuttingDown = true
	e.mu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()

	if alreadyShuttingDown {
		e.abandonRemaining()
		return
	}

	go func() {
		timer := time.NewTimer(e.gracePeriod)
		defer timer.Stop()
		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-timer.C:
			e.abandonRemaining()
		}
	}()
}

func (e *Executor) abandonRemaining() {
	for _, s := range e.graph.shellsInOrder() {
		state, _ := s.snapshot()
		if state != StateTerminated && state != StateError {
			s.setTerminal(StateError)
			e.recordError(newError(CodeComponentFailed, s.name, "", fmt.Errorf("abandoned after grace period")))
		}
	}
}
