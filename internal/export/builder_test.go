package export

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equienroll/equiaudit/internal/fairness"
	"github.com/equienroll/equiaudit/internal/table"
	"github.com/equienroll/equiaudit/internal/trail"
)

// fixtureBuilder returns a builder with a pinned clock and run ID so its
// output is byte-stable for golden comparison.
func fixtureBuilder(t *testing.T, recorder Recorder) *Builder {
	t.Helper()
	b := NewBuilder(Context{
		StudyID: "EQ-2026-001",
		DataCut: "2026-01-01",
		OutDir:  t.TempDir(),
		Version: "1.2.0",
	}, recorder)
	b.runID = "run-fixture-0001"
	b.now = func() time.Time {
		return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	}
	return b
}

// fixtureResults is a hand-built table: a reference group, a failing
// group, and an empty group whose metrics are all undefined.
func fixtureResults() *fairness.ResultTable {
	nan := math.NaN()
	return &fairness.ResultTable{
		Rows: []fairness.Result{
			{
				Group: fairness.GroupKey{"White"}, Label: "White",
				N: 10, Successes: 5, IsReference: true,
				Rate: 0.5, RateLo: 0.2, RateHi: 0.8,
				Disparity: 1, DisparityLo: 1, DisparityHi: 1,
				Parity:   fairness.ParityPass,
				RiskDiff: 0, RiskDiffLo: -0.25, RiskDiffHi: 0.25,
				RelativeRisk: 1, RelativeRiskLo: 1, RelativeRiskHi: 1,
				ParityDiff: 0, ParityDiffLo: -0.25, ParityDiffHi: 0.25,
			},
			{
				Group: fairness.GroupKey{"Black"}, Label: "Black",
				N: 8, Successes: 2,
				Rate: 0.25, RateLo: 0.1, RateHi: 0.5,
				Disparity: 0.5, DisparityLo: 0.25, DisparityHi: 0.75,
				Parity:   fairness.ParityFail,
				RiskDiff: -0.25, RiskDiffLo: -0.5, RiskDiffHi: 0,
				RelativeRisk: 0.5, RelativeRiskLo: 0.25, RelativeRiskHi: 0.75,
				ParityDiff: 0.25, ParityDiffLo: 0, ParityDiffHi: 0.5,
			},
			{
				Group: fairness.GroupKey{"Unknown"}, Label: "Unknown",
				N: 0, Successes: 0,
				Rate: nan, RateLo: nan, RateHi: nan,
				Disparity: nan, DisparityLo: nan, DisparityHi: nan,
				Parity:   fairness.ParityNA,
				RiskDiff: nan, RiskDiffLo: nan, RiskDiffHi: nan,
				RelativeRisk: nan, RelativeRiskLo: nan, RelativeRiskHi: nan,
				ParityDiff: nan, ParityDiffLo: nan, ParityDiffHi: nan,
			},
		},
		Reference: "White",
		Lower:     0.8,
		Upper:     1.25,
	}
}

func TestResultPacket_Golden(t *testing.T) {
	b := fixtureBuilder(t, nil)

	path, err := b.ResultPacket(context.Background(), fixtureResults(), table.CleanReport{
		Rows: 18, DroppedRows: 2, CoercedTokens: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "ResultPacket_v1.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "result_packet", data)
}

func TestTransparencyCard_Golden(t *testing.T) {
	b := fixtureBuilder(t, nil)

	path, err := b.TransparencyCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TransparencyCard_v1.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "transparency_card", data)
}

func TestBuilder_RecordsTrailEvents(t *testing.T) {
	tr, err := trail.Open(":memory:")
	require.NoError(t, err)
	defer tr.Close()

	b := fixtureBuilder(t, tr)
	ctx := context.Background()

	_, err = b.ResultPacket(ctx, fixtureResults(), table.CleanReport{Rows: 18})
	require.NoError(t, err)
	_, err = b.TransparencyCard(ctx)
	require.NoError(t, err)

	events, err := tr.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "result_table", events[0].RecordType)
	assert.Equal(t, "ResultPacket_v1.json", events[0].RecordID)
	assert.Equal(t, "transparency_card", events[1].RecordType)
	assert.Equal(t, "TransparencyCard_v1.json", events[1].RecordID)

	for _, ev := range events {
		assert.Equal(t, "run-fixture-0001", ev.RunID)
		assert.Equal(t, "export", ev.Action)
		assert.Equal(t, "system", ev.Actor)
		// The payload is a digest of the artifact, not the artifact.
		assert.True(t, strings.HasPrefix(ev.Payload, `{"sha256":"`), "payload %q", ev.Payload)
	}

	n, err := tr.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBuilder_DefaultVersionAndRunID(t *testing.T) {
	b := NewBuilder(Context{StudyID: "EQ-2026-001", OutDir: t.TempDir()}, nil)
	assert.Equal(t, "1.0.0", b.ctx.Version)
	assert.NotEmpty(t, b.RunID())

	other := NewBuilder(Context{StudyID: "EQ-2026-001", OutDir: t.TempDir()}, nil)
	assert.NotEqual(t, b.RunID(), other.RunID())
}
