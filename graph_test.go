package fbp

import (
	"errors"
	"testing"
)

func TestAddComponentDuplicateName(t *testing.T) {
	g := NewGraph()
	if err := g.AddComponent(newSource("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := g.AddComponent(newSource("A"))
	assertCode(t, err, CodeDuplicateComponent)
}

func TestConnectUnknownPort(t *testing.T) {
	g := NewGraph()
	_ = g.AddComponent(newSource("A"))
	_ = g.AddComponent(newCollectSink("B"))

	err := g.Connect("A", "NOPE", "B", "IN")
	assertCode(t, err, CodeUnknownPort)

	err = g.Connect("A", "OUT", "B", "NOPE")
	assertCode(t, err, CodeUnknownPort)

	err = g.Connect("NOPE", "OUT", "B", "IN")
	assertCode(t, err, CodeUnknownPort)
}

func TestConnectPortAlreadyConnected(t *testing.T) {
	g := NewGraph()
	_ = g.AddComponent(newSource("A"))
	_ = g.AddComponent(newCollectSink("B"))
	_ = g.AddComponent(newCollectSink("C"))

	if err := g.Connect("A", "OUT", "B", "IN"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := g.Connect("A", "OUT", "C", "IN")
	assertCode(t, err, CodePortAlreadyConnected)
}

func TestSetInitialPacketUnknownPort(t *testing.T) {
	g := NewGraph()
	_ = g.AddComponent(newCollectSink("B"))
	err := g.SetInitialPacket("B", "NOPE", "value")
	assertCode(t, err, CodeUnknownPort)
}

func TestValidateEmptyGraph(t *testing.T) {
	g := NewGraph()
	if err := g.validate(); err == nil {
		t.Fatalf("expected error validating empty graph")
	}
}

func assertCode(t *testing.T, err error, code Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *fbp.Error, got %T: %v", err, err)
	}
	if fe.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, fe.Code, err)
	}
}
