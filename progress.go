package raxftp

import "time"

// Progress is a snapshot of one in-flight transfer, delivered to the
// ProgressFunc observer after every chunk and once on completion.
type Progress struct {
	// Path is the remote path of the transfer.
	Path string

	// Bytes is the number of payload bytes moved so far.
	Bytes int64

	// Total is the expected size in bytes, or -1 when unknown (downloads
	// and listings, where the server does not announce a length).
	Total int64

	// Elapsed is the time since streaming began.
	Elapsed time.Duration
}

// Percent returns completion as 0-100. A zero-byte transfer is complete the
// moment it starts; an unknown total reports 0 until the final snapshot.
func (p Progress) Percent() float64 {
	switch {
	case p.Total == 0:
		return 100
	case p.Total < 0:
		return 0
	default:
		pct := float64(p.Bytes) / float64(p.Total) * 100
		if pct > 100 {
			pct = 100
		}
		return pct
	}
}

// Rate returns the instantaneous transfer rate in bytes per second.
func (p Progress) Rate() float64 {
	secs := p.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.Bytes) / secs
}

// ProgressFunc observes transfer progress. It is called from the transfer
// goroutine between chunks; implementations should return quickly.
type ProgressFunc func(Progress)

// progressTracker accumulates the running tally for one transfer. It is
// created at streaming start and discarded on completion.
type progressTracker struct {
	path  string
	total int64
	bytes int64
	start time.Time
	fn    ProgressFunc
}

func newProgressTracker(path string, total int64, fn ProgressFunc) *progressTracker {
	return &progressTracker{
		path:  path,
		total: total,
		start: time.Now(),
		fn:    fn,
	}
}

// add records n more bytes and notifies the observer.
func (t *progressTracker) add(n int) {
	t.bytes += int64(n)
	t.emit()
}

// finish emits the completion snapshot. For transfers with an unknown total
// the final byte count becomes the total, so the last event reads 100%.
func (t *progressTracker) finish() {
	if t.total < 0 {
		t.total = t.bytes
	}
	t.emit()
}

func (t *progressTracker) emit() {
	if t.fn == nil {
		return
	}
	t.fn(Progress{
		Path:    t.path,
		Bytes:   t.bytes,
		Total:   t.total,
		Elapsed: time.Since(t.start),
	})
}
