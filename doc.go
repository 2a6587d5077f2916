// Package fbp implements the execution core of a flow-based-programming
// runtime: immutable Packets flowing through bounded Connections between
// Component ports, an Executor that drives every component as a
// cooperative goroutine, and a bracket/channel control-packet model that
// layers hierarchical substream and map structure onto an otherwise flat
// packet stream.
//
// # Building and running a graph
//
// A Graph is assembled with AddComponent, Connect, and SetInitialPacket,
// then handed to an Executor:
//
//	g := fbp.NewGraph()
//	g.AddComponent(&Source{})
//	g.AddComponent(&Sink{})
//	g.Connect("Source", "OUT", "Sink", "IN")
//	err := fbp.NewExecutor(g).Execute()
//
// Execute returns nil on normal termination, an *Error with Code ==
// CodeDeadlock if no component can make progress while at least one
// remains unfinished, or the first component error otherwise.
//
// # Components
//
// A Component declares its ports in Initialize and does its work in Run.
// By default a component is once-through: the Executor calls Run a single
// time and closes its outputs when it returns. A component that implements
// LongRunning and reports Keepalive() == true is expected to loop,
// typically on InputPort.Receive, until it observes end-of-stream on every
// input or calls RunContext.Terminate.
//
// # Channels and brackets
//
// Every component subscribes to exactly one channel (InitContext.Subscribe,
// default "default"). Control packets (OPEN/CLOSE/MAP_OPEN/MAP_CLOSE/SWITCH)
// on a component's subscribed channel update that input port's bracket
// stack and are delivered to the component; control packets on any other
// channel are forwarded unchanged to the port's paired output (see Pair)
// without touching bracket state. This is what lets two independent
// overlays — say, a per-record substream structure and an unrelated
// map-keyed structure — coexist on the same data stream.
package fbp
