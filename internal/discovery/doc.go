// Package discovery finds JointSpace TVs on the local network.
//
// The primary mechanism is a subnet scan: every host address of the local
// /24 is probed with GET /1/system on the control port. mDNS browsing is
// offered as a second, passive mechanism for TVs that advertise themselves.
//
// # Subnet Scan
//
// The scan works as follows:
//  1. Enumerator detects the local IPv4 address (falling back to 192.168.1.x)
//  2. The 254 host addresses of that /24 become candidates
//  3. Coordinator probes the candidates on a bounded worker pool
//  4. Each completed probe yields a ProgressEvent; each responding TV a DiscoveryEvent
//  5. A CompleteEvent carries the final Snapshot and the stream closes
//
// # Usage Example
//
//	coord := discovery.NewCoordinator(
//	    discovery.NewEnumerator(protocol.DefaultPort),
//	    discovery.NewHTTPProber(discovery.DefaultProbeTimeout),
//	    store, // any NameResolver, e.g. *config.Store
//	)
//
//	events, err := coord.Start(ctx)
//	if err != nil {
//	    log.Fatal(err) // ErrScanInProgress if a scan is already running
//	}
//
//	for ev := range events {
//	    switch e := ev.(type) {
//	    case discovery.ProgressEvent:
//	        fmt.Printf("\r%d/%d", e.Probed, e.Total)
//	    case discovery.DiscoveryEvent:
//	        fmt.Printf("\nFound: %s at %s\n", e.Result.DisplayName, e.Result.Address)
//	    }
//	}
//
// # Concurrency
//
// Workers never touch session state. They report outcomes over a channel to
// a single aggregation goroutine, which owns the progress counter and the
// result set. Only one session runs at a time per Coordinator.
//
// Cancelling the context passed to Start stops further dispatch. Probes
// already in flight are not interrupted and end at their own timeout. The
// session still ends in StateDone with Cancelled set.
//
// # Network Requirements
//
// - The scan needs plain TCP reachability to the subnet
// - mDNS browsing requires multicast (UDP port 5353) on the local segment
package discovery
