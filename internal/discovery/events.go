package discovery

// Event is one item of a scan's event stream: a ProgressEvent,
// DiscoveryEvent or CompleteEvent. CompleteEvent is always last.
type Event interface {
	isEvent()
}

// ProgressEvent reports that one more candidate finished probing
type ProgressEvent struct {
	Probed int
	Total  int
}

// DiscoveryEvent carries a device found during the scan
type DiscoveryEvent struct {
	Result Result
}

// CompleteEvent ends the stream with the final session state
type CompleteEvent struct {
	Snapshot Snapshot
}

func (ProgressEvent) isEvent()  {}
func (DiscoveryEvent) isEvent() {}
func (CompleteEvent) isEvent()  {}

// Fraction returns progress in [0, 1]
func (p ProgressEvent) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Probed) / float64(p.Total)
}
