// Package export builds the JSON artifacts of an audit run: the result
// packet carrying the full per-group table, and the transparency card
// summarizing the method. Every written artifact is recorded in the audit
// trail together with its content digest.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/equienroll/equiaudit/internal/canon"
	"github.com/equienroll/equiaudit/internal/fairness"
	"github.com/equienroll/equiaudit/internal/table"
	"github.com/equienroll/equiaudit/internal/trail"
)

// Schema versions stamped on the artifacts.
const (
	SchemaResultPacket     = "equiaudit.result.v1"
	SchemaTransparencyCard = "equiaudit.card.v1"
)

// methodSummary is the one-line description of the engine carried on the
// transparency card.
const methodSummary = "Partition by demographics; compute rates with Wilson CIs, " +
	"bootstrap uncertainty for disparity and risk difference, parity decisions vs a fairness band."

// Context identifies the study an export belongs to.
type Context struct {
	StudyID string
	DataCut string
	OutDir  string
	Version string
}

// Recorder is the audit-trail surface the builder needs. Satisfied by
// *trail.Trail; may be nil when no trail is configured.
type Recorder interface {
	Append(ctx context.Context, ev trail.Event) (trail.Event, error)
}

// Builder writes export artifacts for one audit run.
type Builder struct {
	ctx      Context
	recorder Recorder

	// runID tags the artifacts and trail events of this run.
	runID string

	// now is the clock; overridable in tests for stable golden files.
	now func() time.Time
}

// NewBuilder creates a builder writing under ctx.OutDir. recorder may be
// nil, in which case nothing is recorded.
func NewBuilder(ctx Context, recorder Recorder) *Builder {
	if ctx.Version == "" {
		ctx.Version = "1.0.0"
	}
	return &Builder{
		ctx:      ctx,
		recorder: recorder,
		runID:    uuid.NewString(),
		now:      time.Now,
	}
}

// RunID returns the identifier tagging this run's artifacts.
func (b *Builder) RunID() string { return b.runID }

// Rows maps a result table to JSON-ready row objects. Non-finite metric
// values become null, which encoding/json cannot express for raw float64
// fields.
func Rows(res *fairness.ResultTable) []any {
	rows := make([]any, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = map[string]any{
			"group_label":  r.Label,
			"n":            r.N,
			"successes":    r.Successes,
			"is_reference": r.IsReference,

			"rate":         jsonNumber(r.Rate),
			"rate_ci_low":  jsonNumber(r.RateLo),
			"rate_ci_high": jsonNumber(r.RateHi),

			"disparity":         jsonNumber(r.Disparity),
			"disparity_ci_low":  jsonNumber(r.DisparityLo),
			"disparity_ci_high": jsonNumber(r.DisparityHi),

			"parity_flag": string(r.Parity),

			"risk_diff":         jsonNumber(r.RiskDiff),
			"risk_diff_ci_low":  jsonNumber(r.RiskDiffLo),
			"risk_diff_ci_high": jsonNumber(r.RiskDiffHi),

			"relative_risk":         jsonNumber(r.RelativeRisk),
			"relative_risk_ci_low":  jsonNumber(r.RelativeRiskLo),
			"relative_risk_ci_high": jsonNumber(r.RelativeRiskHi),

			"parity_diff":         jsonNumber(r.ParityDiff),
			"parity_diff_ci_low":  jsonNumber(r.ParityDiffLo),
			"parity_diff_ci_high": jsonNumber(r.ParityDiffHi),
		}
	}
	return rows
}

// ResultPacket writes the per-group result table as a JSON packet and
// returns its path.
func (b *Builder) ResultPacket(ctx context.Context, res *fairness.ResultTable, report table.CleanReport) (string, error) {
	payload := map[string]any{
		"schema_version": SchemaResultPacket,
		"study_id":       b.ctx.StudyID,
		"data_cut":       b.ctx.DataCut,
		"reference":      res.Reference,
		"thresholds": map[string]any{
			"lower": jsonNumber(res.Lower),
			"upper": jsonNumber(res.Upper),
		},
		"clean_report": map[string]any{
			"rows":           report.Rows,
			"dropped_rows":   report.DroppedRows,
			"coerced_tokens": report.CoercedTokens,
		},
		"rows": Rows(res),
	}

	return b.writeArtifact(ctx, "ResultPacket_v1", "result_table", payload)
}

// TransparencyCard writes the method summary card and returns its path.
func (b *Builder) TransparencyCard(ctx context.Context) (string, error) {
	payload := map[string]any{
		"schema_version": SchemaTransparencyCard,
		"artifact_id":    "EquiAudit-TransparencyCard",
		"version":        b.ctx.Version,
		"study_id":       b.ctx.StudyID,
		"ci_method":      "wilson",
		"logic_summary":  methodSummary,
	}
	return b.writeArtifact(ctx, "TransparencyCard_v1", "transparency_card", payload)
}

// writeArtifact stamps, serializes and writes one artifact, then records
// it in the trail with its digest.
func (b *Builder) writeArtifact(ctx context.Context, name, recordType string, payload map[string]any) (string, error) {
	payload["_meta"] = map[string]any{
		"export_version": b.ctx.Version,
		"generated":      b.now().UTC().Format(time.RFC3339),
		"run_id":         b.runID,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encoding %s: %w", name, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(b.ctx.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("export: creating output dir: %w", err)
	}
	path := filepath.Join(b.ctx.OutDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: writing %s: %w", name, err)
	}

	if b.recorder != nil {
		digest, err := artifactDigest(payload)
		if err != nil {
			return "", fmt.Errorf("export: digesting %s: %w", name, err)
		}
		_, err = b.recorder.Append(ctx, trail.Event{
			RunID:      b.runID,
			Actor:      "system",
			Action:     "export",
			RecordType: recordType,
			RecordID:   name + ".json",
			Payload:    digest,
		})
		if err != nil {
			return "", fmt.Errorf("export: recording %s: %w", name, err)
		}
	}
	return path, nil
}

// artifactDigest returns the canonical-JSON SHA-256 digest payload stored
// in the trail for an artifact.
func artifactDigest(payload map[string]any) (string, error) {
	canonical, err := canon.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	out, err := canon.Marshal(map[string]any{"sha256": hex.EncodeToString(sum[:])})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// jsonNumber maps non-finite floats to nil so encoding/json can represent
// undefined metrics as null.
func jsonNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
