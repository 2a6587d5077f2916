package fbp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSendReceiveOrder(t *testing.T) {
	c := newConnection(4, "A", "OUT", "B", "IN")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := c.send(ctx, Data(i, ""))
		require.Equal(t, sendOK, res)
	}
	require.Equal(t, 3, c.Depth())

	for i := 0; i < 3; i++ {
		pkt, res := c.receive(ctx)
		require.Equal(t, recvOK, res)
		require.Equal(t, i, pkt.Payload())
	}
}

func TestConnectionDrainsBeforeReportingClosed(t *testing.T) {
	c := newConnection(2, "A", "OUT", "B", "IN")
	ctx := context.Background()

	require.Equal(t, sendOK, c.send(ctx, Data("x", "")))
	c.Close()

	pkt, res := c.receive(ctx)
	require.Equal(t, recvOK, res, "buffered packet must be drained before EOS")
	require.Equal(t, "x", pkt.Payload())

	_, res = c.receive(ctx)
	require.Equal(t, recvClosed, res)
}

func TestConnectionSendAfterCloseFails(t *testing.T) {
	c := newConnection(1, "A", "OUT", "B", "IN")
	c.Close()
	res := c.send(context.Background(), Data("x", ""))
	require.Equal(t, sendClosed, res)
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	c := newConnection(1, "A", "OUT", "B", "IN")
	require.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
}

func TestConnectionReceiveCanceled(t *testing.T) {
	c := newConnection(1, "A", "OUT", "B", "IN")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res := c.receive(ctx)
	require.Equal(t, recvCanceled, res)
}
