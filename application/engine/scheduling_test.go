package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sentinel/domain/config"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/policy"
	"sentinel/infrastructure/scheduler"
	"sentinel/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stallingGateway holds its first send until release is closed
type stallingGateway struct {
	release chan struct{}
	first   sync.Once
	stalled chan struct{}
	sent    atomic.Int32
}

func newStallingGateway() *stallingGateway {
	return &stallingGateway{release: make(chan struct{}), stalled: make(chan struct{})}
}

func (g *stallingGateway) Send(ctx context.Context, _ entities.EmergencyContact, _ string) error {
	hold := false
	g.first.Do(func() {
		hold = true
		close(g.stalled)
	})
	if hold {
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.sent.Add(1)
	return nil
}

type countingAudio struct {
	samples atomic.Int32
}

func (c *countingAudio) Sample(context.Context) (float64, error) {
	c.samples.Add(1)
	return 0, nil
}

func countMessages(records []entities.AlertRecord, message string) int {
	n := 0
	for _, r := range records {
		if r.Message == message {
			n++
		}
	}
	return n
}

func TestEngine_SlowGatewayDoesNotStallTimers(t *testing.T) {
	if testing.Short() {
		t.Skip("runs on wall-clock timers")
	}

	loop := scheduler.NewLoop(zap.NewNop())
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go loop.Run(runCtx)

	gateway := newStallingGateway()
	feed := newFakeFeed()
	audio := &countingAudio{}
	cfg := config.DefaultDomainConfig()
	cfg.DispatchTimeout = 20 * time.Second

	eng, err := New(cfg, Dependencies{
		Scheduler: loop,
		Location:  feed,
		Audio:     audio,
		Gateway:   gateway,
		Confirmer: policy.ConfirmerFunc(func(float64, float64) bool { return false }),
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = eng.Activate(ctx, fixtures.NewProfileBuilder().Build())
	require.NoError(t, err)
	feed.SetContinuous(false)

	_, err = eng.ArmManualPanic(ctx)
	require.NoError(t, err)

	select {
	case <-gateway.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("first dispatch never reached the gateway")
	}
	assert.True(t, feed.Continuous(), "tracking goes continuous before contacts are notified")
	assert.False(t, eng.State().IsPending())

	// the first dispatch is now parked inside the gateway
	samplesBefore := audio.samples.Load()
	armed := time.Now()
	_, err = eng.ArmManualPanic(ctx)
	require.NoError(t, err)
	require.True(t, eng.State().IsPending())

	require.Eventually(t, func() bool {
		return countMessages(eng.Alerts(), DispatchedMessage) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(armed), 4*time.Second, "second countdown dispatched on time")
	assert.EqualValues(t, 1, gateway.sent.Load(), "second dispatch went out while the first is still stalled")
	assert.GreaterOrEqual(t, audio.samples.Load()-samplesBefore, int32(2), "audio sampling kept running")

	close(gateway.release)
	require.Eventually(t, func() bool {
		return countMessages(eng.Alerts(), DispatchedMessage) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, gateway.sent.Load())

	eng.Close()
	loop.Close()
}

func TestEngine_CloseWaitsForDispatch(t *testing.T) {
	te := newTestEngine(t, Dependencies{})
	gateway := newStallingGateway()
	te.dispatcher.gateway = gateway
	te.activate(t)

	_, err := te.ArmManualPanic(context.Background())
	require.NoError(t, err)
	te.clock.Advance(3 * time.Second)
	<-gateway.stalled

	closed := make(chan struct{})
	go func() {
		te.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a dispatch was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gateway.release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after the dispatch finished")
	}
	assert.EqualValues(t, 1, gateway.sent.Load())
}
