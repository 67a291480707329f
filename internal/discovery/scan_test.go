package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/tvremote/internal/config"
	"github.com/muurk/tvremote/internal/protocol"
)

type staticSource []protocol.Address

func (s staticSource) Candidates() []protocol.Address {
	return s
}

func subnet(prefix string) staticSource {
	return staticSource(Candidates(net.ParseIP(prefix+".0"), protocol.DefaultPort))
}

// drain collects every event until the stream closes
func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("event stream did not close; %d events so far", len(out))
			return nil
		}
	}
}

func TestCoordinator_SnapshotBeforeStart(t *testing.T) {
	c := NewCoordinator(subnet("10.0.0"), ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		return "", false
	}), nil)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, c.Running())
}

func TestCoordinator_ProgressIndependentOfCompletionOrder(t *testing.T) {
	devices := map[string]string{
		"192.168.1.10":  "LivingRoomTV",
		"192.168.1.77":  "",
		"192.168.1.254": "Bedroom",
	}

	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			delays := make(map[string]time.Duration)
			for _, addr := range subnet("192.168.1") {
				delays[addr.IP] = time.Duration(rng.Intn(3000)) * time.Microsecond
			}

			var calls sync.Map
			prober := ProberFunc(func(_ context.Context, addr protocol.Address) (string, bool) {
				if _, dup := calls.LoadOrStore(addr.IP, true); dup {
					t.Errorf("address %s probed twice", addr.IP)
				}
				time.Sleep(delays[addr.IP])
				name, ok := devices[addr.IP]
				if !ok {
					return "", false
				}
				if name == "" {
					name = addr.IP
				}
				return name, true
			})

			c := NewCoordinator(subnet("192.168.1"), prober, nil)
			c.SetWorkers(16)

			events, err := c.Start(context.Background())
			require.NoError(t, err)

			all := drain(t, events)
			require.NotEmpty(t, all)

			last, ok := all[len(all)-1].(CompleteEvent)
			require.True(t, ok, "last event must be CompleteEvent, got %T", all[len(all)-1])

			candidates := make(map[string]bool)
			for _, a := range subnet("192.168.1") {
				candidates[a.IP] = true
			}

			expected := 1
			reachedTotal := 0
			found := make(map[string]bool)
			for _, ev := range all[:len(all)-1] {
				switch e := ev.(type) {
				case ProgressEvent:
					assert.Equal(t, expected, e.Probed, "progress must increase by one")
					assert.Equal(t, 254, e.Total)
					if e.Probed == e.Total {
						reachedTotal++
					}
					expected++
				case DiscoveryEvent:
					ip := e.Result.Address.IP
					assert.True(t, candidates[ip], "result %s not a candidate", ip)
					assert.False(t, found[ip], "duplicate result for %s", ip)
					found[ip] = true
				case CompleteEvent:
					t.Fatal("CompleteEvent before end of stream")
				}
			}

			assert.Equal(t, 1, reachedTotal, "progress reaches total exactly once")
			assert.Len(t, found, len(devices))

			snap := last.Snapshot
			assert.Equal(t, StateDone, snap.State)
			assert.False(t, snap.Cancelled)
			assert.Equal(t, 254, snap.Probed)
			assert.Equal(t, 254, snap.Total)
			require.Len(t, snap.Results, 3)
			assert.Equal(t, "192.168.1.10", snap.Results[0].Address.IP)
			assert.Equal(t, "LivingRoomTV", snap.Results[0].DisplayName)
			assert.Equal(t, "192.168.1.77", snap.Results[1].DisplayName, "no name falls back to the address")
			assert.Equal(t, "192.168.1.254", snap.Results[2].Address.IP)

			assert.Equal(t, snap, c.Snapshot())
		})
	}
}

func TestCoordinator_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	prober := ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "", false
	})

	c := NewCoordinator(subnet("10.1.1"), prober, nil)
	c.SetWorkers(8)

	events, err := c.Start(context.Background())
	require.NoError(t, err)
	drain(t, events)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(8))
	assert.Equal(t, 254, c.Snapshot().Probed)
}

func TestCoordinator_SecondStartRejected(t *testing.T) {
	gate := make(chan struct{})
	prober := ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		<-gate
		return "TV", true
	})

	c := NewCoordinator(staticSource{protocol.NewAddress("10.0.0.1"), protocol.NewAddress("10.0.0.2")}, prober, nil)

	events, err := c.Start(context.Background())
	require.NoError(t, err)
	require.True(t, c.Running())

	before := c.Snapshot()

	second, err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.Nil(t, second)

	after := c.Snapshot()
	assert.Equal(t, before.Started, after.Started, "running session must not be replaced")
	assert.Equal(t, before.Candidates, after.Candidates)
	assert.Equal(t, StateRunning, after.State)

	close(gate)
	drain(t, events)

	snap := c.Snapshot()
	assert.Equal(t, StateDone, snap.State)
	assert.Equal(t, 2, snap.Probed)
	assert.Len(t, snap.Results, 2)

	// A finished session is superseded by the next scan
	again, err := c.Start(context.Background())
	require.NoError(t, err)
	drain(t, again)
	assert.Equal(t, 2, c.Snapshot().Probed)
}

func TestCoordinator_Cancel(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 16)

	var mu sync.Mutex
	var probeCtxErrs []error
	prober := ProberFunc(func(ctx context.Context, addr protocol.Address) (string, bool) {
		started <- struct{}{}
		<-gate
		mu.Lock()
		probeCtxErrs = append(probeCtxErrs, ctx.Err())
		mu.Unlock()
		return "TV " + addr.IP, true
	})

	var candidates staticSource
	for i := 1; i <= 10; i++ {
		candidates = append(candidates, protocol.NewAddress(fmt.Sprintf("10.0.0.%d", i)))
	}

	c := NewCoordinator(candidates, prober, nil)
	c.SetWorkers(2)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Start(ctx)
	require.NoError(t, err)

	<-started
	<-started
	cancel()
	close(gate)

	all := drain(t, events)
	last, ok := all[len(all)-1].(CompleteEvent)
	require.True(t, ok)

	snap := last.Snapshot
	assert.Equal(t, StateDone, snap.State)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, 2, snap.Probed, "in-flight probes complete and nothing else is dispatched")
	assert.Len(t, snap.Results, snap.Probed)

	mu.Lock()
	defer mu.Unlock()
	for _, err := range probeCtxErrs {
		assert.NoError(t, err, "in-flight probes run to their own timeout")
	}
}

func TestCoordinator_CancelWhileWaitingForSlot(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 4)
	var calls int32
	prober := ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-gate
		return "", false
	})

	c := NewCoordinator(staticSource{
		protocol.NewAddress("10.0.0.1"),
		protocol.NewAddress("10.0.0.2"),
		protocol.NewAddress("10.0.0.3"),
	}, prober, nil)
	c.SetWorkers(1)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Start(ctx)
	require.NoError(t, err)

	// The only slot is busy, so the dispatcher is waiting for it
	<-started
	cancel()
	close(gate)

	all := drain(t, events)
	last, ok := all[len(all)-1].(CompleteEvent)
	require.True(t, ok)

	assert.True(t, last.Snapshot.Cancelled)
	assert.Equal(t, 1, last.Snapshot.Probed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no probe starts once the context is cancelled")
}

func TestCoordinator_CustomNameOverridesReported(t *testing.T) {
	store := config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	store.SetName("192.168.1.42", "Sala")

	prober := ProberFunc(func(_ context.Context, addr protocol.Address) (string, bool) {
		switch addr.IP {
		case "192.168.1.42":
			return "TV-X", true
		case "192.168.1.43":
			return "TV-Y", true
		}
		return "", false
	})

	c := NewCoordinator(subnet("192.168.1"), prober, store)
	events, err := c.Start(context.Background())
	require.NoError(t, err)

	names := make(map[string]Result)
	for _, ev := range drain(t, events) {
		if d, ok := ev.(DiscoveryEvent); ok {
			names[d.Result.Address.IP] = d.Result
		}
	}

	require.Contains(t, names, "192.168.1.42")
	assert.Equal(t, "Sala", names["192.168.1.42"].DisplayName)
	assert.Equal(t, "TV-X", names["192.168.1.42"].ReportedName)
	assert.Equal(t, "TV-Y", names["192.168.1.43"].DisplayName)
}

func TestCoordinator_DuplicateCandidatesProbedOnce(t *testing.T) {
	var calls int32
	prober := ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		atomic.AddInt32(&calls, 1)
		return "TV", true
	})

	source := staticSource{
		protocol.NewAddress("10.0.0.1"),
		protocol.NewAddress("10.0.0.1"),
		protocol.NewAddress("10.0.0.2"),
	}
	c := NewCoordinator(source, prober, nil)

	events, err := c.Start(context.Background())
	require.NoError(t, err)
	drain(t, events)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Total)
	assert.Len(t, snap.Results, 2)
}

func TestCoordinator_NoCandidates(t *testing.T) {
	c := NewCoordinator(staticSource{}, ProberFunc(func(context.Context, protocol.Address) (string, bool) {
		return "", false
	}), nil)

	events, err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Nil(t, events)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestSortResults(t *testing.T) {
	results := []Result{
		{Address: protocol.NewAddress("192.168.1.100")},
		{Address: protocol.NewAddress("192.168.1.9")},
		{Address: protocol.NewAddress("192.168.1.20")},
	}

	SortResults(results)

	assert.Equal(t, "192.168.1.9", results[0].Address.IP)
	assert.Equal(t, "192.168.1.20", results[1].Address.IP)
	assert.Equal(t, "192.168.1.100", results[2].Address.IP)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestProgressEventFraction(t *testing.T) {
	assert.InDelta(t, 0.5, ProgressEvent{Probed: 127, Total: 254}.Fraction(), 1e-9)
	assert.Zero(t, ProgressEvent{}.Fraction())
}
