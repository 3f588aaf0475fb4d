package trail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/equienroll/equiaudit/internal/canon"
)

// Domain prefix for trail event hashing. The version suffix enables future
// algorithm migration without invalidating existing chains wholesale.
const domainTrailEvent = "equiaudit/trail-event/v1"

// eventHash computes the content hash of an event over its canonical JSON
// form. The hash covers prev_hash, which is what chains events together.
// Seq and ThisHash are excluded: one is storage-assigned, the other is the
// output.
func eventHash(ev Event) (string, error) {
	obj := map[string]any{
		"run_id":      ev.RunID,
		"recorded_at": ev.RecordedAt,
		"actor":       ev.Actor,
		"action":      ev.Action,
		"record_type": ev.RecordType,
		"record_id":   ev.RecordID,
		"payload":     ev.Payload,
		"prev_hash":   ev.PrevHash,
	}

	canonical, err := canon.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("eventHash: failed to marshal: %w", err)
	}
	return hashWithDomain(domainTrailEvent, canonical), nil
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
