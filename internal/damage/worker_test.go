package damage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayvnc-go/wayvnc/internal/region"
)

func TestWorkerSubmitAndReceive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(ctx)
	defer w.Close()

	r := NewRefinery(32, 32)
	buf := newTestBuffer(t, 32, 32)
	done := make(chan Result, 1)

	require.NoError(t, w.Submit(ctx, Job{
		Refinery: r,
		Hint:     region.Rect{X1: 0, Y1: 0, X2: 32, Y2: 32},
		Buf:      buf,
		Done:     done,
	}))

	select {
	case res := <-done:
		require.NoError(t, res.Err)
		assert.False(t, res.Region.Empty())
	case <-time.After(time.Second):
		t.Fatal("worker did not complete job in time")
	}
}

func TestWorkerSubmitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorker(context.Background())
	defer w.Close()

	err := w.Submit(ctx, Job{})
	assert.ErrorIs(t, err, context.Canceled)
}
