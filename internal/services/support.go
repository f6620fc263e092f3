package services

// ScanProgress is a point-in-time snapshot emitted on the scanner's
// progress channel. Sends are non-blocking; a slow consumer only loses
// intermediate snapshots, never the completed one.
type ScanProgress struct {
	Files       int64
	Dirs        int64
	Bytes       int64
	Errors      int64
	Skipped     int64
	CurrentPath string
	Completed   bool
}

// DeleteProgress is emitted after each item of a deletion batch. The
// tree tombstone and size propagation for an item always precede the
// event reporting it completed.
type DeleteProgress struct {
	Completed  int
	Total      int
	FreedBytes int64
	Failures   int
	Done       bool
}

func progressNonBlocking(ch chan<- ScanProgress, msg ScanProgress) {
	select {
	case ch <- msg:
	default:
	}
}

func deleteProgressNonBlocking(ch chan<- DeleteProgress, msg DeleteProgress) {
	select {
	case ch <- msg:
	default:
	}
}
