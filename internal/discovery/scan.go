package discovery

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/tvremote/internal/logging"
	"github.com/muurk/tvremote/internal/protocol"
)

// DefaultWorkers is the number of probes in flight at once
const DefaultWorkers = 64

var (
	// ErrScanInProgress indicates a scan is already running
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrNoCandidates indicates the candidate source produced nothing to probe
	ErrNoCandidates = errors.New("no scan candidates")
)

// State represents the lifecycle state of a scan session
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is one responding device
type Result struct {
	Address      protocol.Address
	ReportedName string // Name from the device, or its IP when it reported none
	DisplayName  string // Name to show: custom override, else ReportedName
}

// NameResolver maps a device to its display name
type NameResolver interface {
	DisplayName(ip, reported string) string
}

// NameResolverFunc adapts a function to the NameResolver interface
type NameResolverFunc func(ip, reported string) string

// DisplayName calls f(ip, reported)
func (f NameResolverFunc) DisplayName(ip, reported string) string {
	return f(ip, reported)
}

// Snapshot is a point-in-time copy of a scan session
type Snapshot struct {
	State      State
	Candidates []protocol.Address
	Probed     int
	Total      int
	Results    []Result // Sorted by address
	Cancelled  bool     // Dispatch stopped before every candidate was probed
	Started    time.Time
	Finished   time.Time
}

// session is owned by the coordinator. Once Running, only the aggregation
// goroutine writes to it; c.mu makes those writes visible to Snapshot.
type session struct {
	state      State
	candidates []protocol.Address
	probed     int
	results    map[string]Result
	cancelled  bool
	started    time.Time
	finished   time.Time
}

// outcome is what a worker reports back to the aggregator
type outcome struct {
	addr  protocol.Address
	name  string
	found bool
}

// Coordinator runs subnet scans, one at a time
type Coordinator struct {
	source  CandidateSource
	prober  Prober
	names   NameResolver
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	session *session
}

// NewCoordinator creates a coordinator. names may be nil, in which case the
// reported name is displayed.
func NewCoordinator(source CandidateSource, prober Prober, names NameResolver) *Coordinator {
	return &Coordinator{
		source:  source,
		prober:  prober,
		names:   names,
		workers: DefaultWorkers,
		logger:  logging.Named("scan"),
	}
}

// SetWorkers sets the probe concurrency. Non-positive values select
// DefaultWorkers. Takes effect on the next Start.
func (c *Coordinator) SetWorkers(n int) {
	if n <= 0 {
		n = DefaultWorkers
	}
	c.mu.Lock()
	c.workers = n
	c.mu.Unlock()
}

// SetLogger replaces the coordinator's logger
func (c *Coordinator) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Start begins a new scan and returns its event stream. The stream carries
// one ProgressEvent per probed candidate and one DiscoveryEvent per device,
// then a CompleteEvent, then closes.
//
// Start returns ErrScanInProgress while a session is running; the running
// session is not affected. Cancelling ctx stops dispatching further probes.
// Probes already in flight finish at their own timeout.
func (c *Coordinator) Start(ctx context.Context) (<-chan Event, error) {
	c.mu.Lock()
	if c.session != nil && c.session.state == StateRunning {
		c.mu.Unlock()
		return nil, ErrScanInProgress
	}

	candidates := uniqueAddresses(c.source.Candidates())
	if len(candidates) == 0 {
		c.mu.Unlock()
		return nil, ErrNoCandidates
	}

	s := &session{
		state:      StateRunning,
		candidates: candidates,
		results:    make(map[string]Result),
		started:    time.Now(),
	}
	c.session = s
	workers := c.workers
	c.mu.Unlock()

	// Room for every progress and discovery event plus completion
	events := make(chan Event, 2*len(candidates)+1)

	prefix := ""
	if ip := net.ParseIP(candidates[0].IP); ip != nil {
		prefix = Prefix(ip)
	}
	logging.LogScanStarted(c.logger, prefix, len(candidates), workers)

	go c.run(ctx, s, workers, events)
	return events, nil
}

// run dispatches probes and aggregates their outcomes into s
func (c *Coordinator) run(ctx context.Context, s *session, workers int, events chan<- Event) {
	defer close(events)

	outcomes := make(chan outcome, workers)
	probeCtx := context.WithoutCancel(ctx)

	var cancelled bool
	go func() {
		defer close(outcomes)

		var g errgroup.Group
		slots := make(chan struct{}, workers)
		for _, addr := range s.candidates {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}
			// Checked after the slot is held so a cancel during the wait
			// dispatches nothing more
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			g.Go(func() error {
				defer func() { <-slots }()
				name, found := c.prober.Probe(probeCtx, addr)
				outcomes <- outcome{addr: addr, name: name, found: found}
				return nil
			})
		}
		_ = g.Wait()
	}()

	total := len(s.candidates)
	for o := range outcomes {
		c.mu.Lock()
		s.probed++
		probed := s.probed
		_, seen := s.results[o.addr.IP]
		c.mu.Unlock()

		events <- ProgressEvent{Probed: probed, Total: total}

		if !o.found || seen {
			continue
		}

		result := Result{
			Address:      o.addr,
			ReportedName: o.name,
			DisplayName:  c.displayName(o.addr.IP, o.name),
		}

		c.mu.Lock()
		s.results[o.addr.IP] = result
		c.mu.Unlock()

		logging.LogDiscovery(c.logger, o.addr.String(), o.name, result.DisplayName)
		events <- DiscoveryEvent{Result: result}
	}

	// outcomes is closed, so the dispatcher's write to cancelled is visible
	c.mu.Lock()
	s.state = StateDone
	s.cancelled = cancelled
	s.finished = time.Now()
	snapshot := snapshotOf(s)
	c.mu.Unlock()

	logging.LogScanFinished(c.logger, snapshot.Probed, snapshot.Total, len(snapshot.Results),
		snapshot.Cancelled, snapshot.Finished.Sub(snapshot.Started))

	events <- CompleteEvent{Snapshot: snapshot}
}

func (c *Coordinator) displayName(ip, reported string) string {
	if c.names == nil {
		if reported == "" {
			return ip
		}
		return reported
	}
	return c.names.DisplayName(ip, reported)
}

// Snapshot returns a copy of the current or most recent session.
// Before the first scan it reports StateIdle.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Snapshot{State: StateIdle}
	}
	return snapshotOf(c.session)
}

// Running reports whether a scan is in progress
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.state == StateRunning
}

// snapshotOf copies s. Caller must hold c.mu.
func snapshotOf(s *session) Snapshot {
	snap := Snapshot{
		State:      s.state,
		Candidates: append([]protocol.Address(nil), s.candidates...),
		Probed:     s.probed,
		Total:      len(s.candidates),
		Results:    make([]Result, 0, len(s.results)),
		Cancelled:  s.cancelled,
		Started:    s.started,
		Finished:   s.finished,
	}
	for _, r := range s.results {
		snap.Results = append(snap.Results, r)
	}
	SortResults(snap.Results)
	return snap
}

// SortResults orders results numerically by address
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return compareAddress(results[i].Address, results[j].Address) < 0
	})
}

func compareAddress(a, b protocol.Address) int {
	ia, ib := net.ParseIP(a.IP).To4(), net.ParseIP(b.IP).To4()
	if ia != nil && ib != nil {
		if c := bytes.Compare(ia, ib); c != 0 {
			return c
		}
	} else if a.IP != b.IP {
		if a.IP < b.IP {
			return -1
		}
		return 1
	}
	return a.Port - b.Port
}

// uniqueAddresses drops repeated IPs, keeping first occurrences in order
func uniqueAddresses(in []protocol.Address) []protocol.Address {
	seen := make(map[string]struct{}, len(in))
	out := make([]protocol.Address, 0, len(in))
	for _, a := range in {
		if _, dup := seen[a.IP]; dup {
			continue
		}
		seen[a.IP] = struct{}{}
		out = append(out, a)
	}
	return out
}
