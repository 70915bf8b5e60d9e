package shop

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedSender fails the first fail sends and succeeds afterwards,
// recording every command it saw.
type scriptedSender struct {
	fail int
	sent []string
}

func (s *scriptedSender) Send(_ context.Context, command string) error {
	if s.fail > 0 {
		s.fail--
		return errors.New("connection refused")
	}
	s.sent = append(s.sent, command)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDeliverSuccessQueuesNothing(t *testing.T) {
	queue := NewMemoryQueueStore()
	exec := NewExecutor(&scriptedSender{}, queue, discard())

	outcome, err := exec.Deliver(context.Background(), "eos-1", "Rex", "GiveDino 1 Rex", "Ragnarok", 30)
	require.NoError(t, err)
	require.Equal(t, Delivered, outcome)

	pending, err := queue.Pending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDeliverFailureQueuesExactlyOneRow(t *testing.T) {
	queue := NewMemoryQueueStore()
	exec := NewExecutor(&scriptedSender{fail: 1}, queue, discard())

	outcome, err := exec.Deliver(context.Background(), "eos-1", "Rex", "GiveDino 1 Rex", "Ragnarok", 30)
	require.NoError(t, err)
	require.Equal(t, Queued, outcome)

	pending, err := queue.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "eos-1", pending[0].PlayerID)
	require.Equal(t, int64(30), pending[0].Price)
	require.Equal(t, DeliveryPending, pending[0].Status)
}

func TestFlushDeliversInCreationOrder(t *testing.T) {
	queue := NewMemoryQueueStore()
	sender := &scriptedSender{fail: 3}
	exec := NewExecutor(sender, queue, discard())

	ctx := context.Background()
	for _, cmd := range []string{"first", "second", "third"} {
		outcome, err := exec.Deliver(ctx, "eos-1", cmd, cmd, "", 10)
		require.NoError(t, err)
		require.Equal(t, Queued, outcome)
	}

	delivered, err := exec.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, delivered)
	require.Equal(t, []string{"first", "second", "third"}, sender.sent)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestFlushLeavesFailuresPending(t *testing.T) {
	queue := NewMemoryQueueStore()
	sender := &scriptedSender{fail: 2}
	exec := NewExecutor(sender, queue, discard())

	ctx := context.Background()
	_, err := exec.Deliver(ctx, "eos-1", "Rex", "give rex", "", 10)
	require.NoError(t, err)

	// First flush still fails against the channel.
	delivered, err := exec.Flush(ctx)
	require.NoError(t, err)
	require.Zero(t, delivered)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Channel recovered; second flush drains it.
	delivered, err = exec.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)
}

func TestFlushNeverDeliversTwice(t *testing.T) {
	queue := NewMemoryQueueStore()
	sender := &scriptedSender{fail: 1}
	exec := NewExecutor(sender, queue, discard())

	ctx := context.Background()
	_, err := exec.Deliver(ctx, "eos-1", "Rex", "give rex", "", 10)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = exec.Flush(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"give rex"}, sender.sent)

	all, err := queue.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, DeliveryDelivered, all[0].Status)
	require.NotNil(t, all[0].DeliveredAt)
}
