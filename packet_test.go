package fbp

import "testing"

func TestDataPacket(t *testing.T) {
	p := Data("hello", "")
	if !p.IsData() || p.IsControl() {
		t.Fatalf("expected data packet")
	}
	if p.Channel() != DefaultChannel {
		t.Fatalf("expected default channel, got %q", p.Channel())
	}
	if p.Payload() != "hello" {
		t.Fatalf("unexpected payload %v", p.Payload())
	}
}

func TestControlPacket(t *testing.T) {
	p := Control(Switch, "alphanum", "num")
	if !p.IsControl() || p.IsData() {
		t.Fatalf("expected control packet")
	}
	if p.Kind() != Switch {
		t.Fatalf("unexpected kind %v", p.Kind())
	}
	if p.Arg() != "num" {
		t.Fatalf("unexpected arg %q", p.Arg())
	}
	if p.Channel() != "alphanum" {
		t.Fatalf("unexpected channel %q", p.Channel())
	}
}

func TestOutcomeHelpers(t *testing.T) {
	if !endOfStreamOutcome.IsEndOfStream() {
		t.Fatalf("expected end-of-stream outcome")
	}
	if !timeoutOutcome.IsTimeout() {
		t.Fatalf("expected timeout outcome")
	}
}
