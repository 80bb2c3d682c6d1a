package history

import (
	"context"
	"sync"
	"time"

	"github.com/adqa/browser-test-harness/framework/bttest"

	"github.com/oklog/ulid/v2"
)

// Recorder turns outcomes into records and appends them to a store. It implements
// bttest.Recorder.
type Recorder struct {
	store        Store
	runTimestamp time.Time
	records      []Record
	lock         sync.Mutex
}

var _ bttest.Recorder = (*Recorder)(nil)

func NewRecorder(store Store, runTimestamp time.Time) *Recorder {
	return &Recorder{store: store, runTimestamp: runTimestamp}
}

// NewID returns a new unique, time-ordered identifier, used for run IDs and record IDs.
func NewID() string {
	return ulid.Make().String()
}

func (r *Recorder) Record(ctx context.Context, o bttest.Outcome) error {
	rec := FromOutcome(NewID(), r.runTimestamp, o)

	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.store.Append(ctx, rec); err != nil {
		if IsStoreWriteError(err) {
			return err
		}
		return &StoreWriteError{Backend: storeName(r.store), RecordID: rec.RecordID, Err: err}
	}
	r.records = append(r.records, rec)
	return nil
}

// Records returns the records that were successfully appended, in order.
func (r *Recorder) Records() []Record {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Record(nil), r.records...)
}
