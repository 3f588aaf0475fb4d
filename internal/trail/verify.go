package trail

import (
	"context"
	"fmt"
)

// VerifyError reports the first broken link found in the chain.
type VerifyError struct {
	// Seq is the sequence number of the offending event.
	Seq int64

	// Reason describes the mismatch.
	Reason string
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("trail verification failed at seq %d: %s", e.Seq, e.Reason)
}

// Verify walks the full chain and recomputes every link. Returns the number
// of verified events, or a *VerifyError at the first event whose stored
// hashes do not match recomputation.
//
// An empty chain verifies trivially with count 0.
func (t *Trail) Verify(ctx context.Context) (int, error) {
	events, err := t.Events(ctx)
	if err != nil {
		return 0, err
	}

	prev := ""
	for _, ev := range events {
		if ev.PrevHash != prev {
			return 0, &VerifyError{
				Seq:    ev.Seq,
				Reason: fmt.Sprintf("prev_hash %q does not link to preceding event hash %q", ev.PrevHash, prev),
			}
		}
		want, err := eventHash(ev)
		if err != nil {
			return 0, err
		}
		if ev.ThisHash != want {
			return 0, &VerifyError{
				Seq:    ev.Seq,
				Reason: "stored hash does not match recomputed event content",
			}
		}
		prev = ev.ThisHash
	}
	return len(events), nil
}
