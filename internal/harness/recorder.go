package harness

import (
	"sort"
	"sync"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/testutil"
)

// recorder assigns logical sequence numbers to trace records.
//
// Async listeners run concurrently, so their records are buffered while an
// EmitAsync is in flight and sequenced afterwards in (listener, object)
// order. This keeps traces identical across runs.
type recorder struct {
	mu      sync.Mutex
	clock   *testutil.Clock
	records []ir.TraceRecord
	async   []ir.TraceRecord
	inAsync bool
}

func newRecorder() *recorder {
	return &recorder{clock: testutil.NewClock()}
}

func (r *recorder) add(rec ir.TraceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inAsync && rec.Kind == ir.TraceListener {
		r.async = append(r.async, rec)
		return
	}
	rec.Seq = r.clock.Next()
	r.records = append(r.records, rec)
}

func (r *recorder) beginAsync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inAsync = true
}

func (r *recorder) endAsync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.async, func(i, j int) bool {
		a, b := r.async[i], r.async[j]
		if a.Listener != b.Listener {
			return a.Listener < b.Listener
		}
		return a.Object < b.Object
	})
	for _, rec := range r.async {
		rec.Seq = r.clock.Next()
		r.records = append(r.records, rec)
	}
	r.async = nil
	r.inAsync = false
}

func (r *recorder) snapshot() []ir.TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.TraceRecord, len(r.records))
	copy(out, r.records)
	return out
}
