package status

import "testing"

func TestProgressTracker_FiresOnProgress(t *testing.T) {
	var gotBytes, gotTotal int64
	var calls int
	cb := Callbacks{
		OnProgress: func(transferID string, bytesDone, bytesTotal int64, speedBps, etaSeconds float64) {
			calls++
			gotBytes = bytesDone
			gotTotal = bytesTotal
		},
	}

	tracker := NewProgressTracker(cb, "xfer-1", 1000)
	tracker.Update(100)
	tracker.Update(500)

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if gotBytes != 500 || gotTotal != 1000 {
		t.Errorf("got bytesDone=%d bytesTotal=%d, want 500/1000", gotBytes, gotTotal)
	}
}

func TestProgressTracker_NilCallbacksDoNotPanic(t *testing.T) {
	tracker := NewProgressTracker(Callbacks{}, "xfer-1", 1000)
	tracker.Update(100)
}

func TestCallbacks_FireErrorNilSafe(t *testing.T) {
	var cb Callbacks
	cb.FireError(ErrKindInternal, "boom") // must not panic
}
