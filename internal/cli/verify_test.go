package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equienroll/equiaudit/internal/trail"
)

// seedTrail builds a small intact chain on disk and returns the db path.
func seedTrail(t *testing.T, events int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trail.db")

	tr, err := trail.Open(path)
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	for i := 0; i < events; i++ {
		_, err := tr.Append(ctx, trail.Event{
			RunID:      "run-1",
			Actor:      "system",
			Action:     "audit",
			RecordType: "result_table",
			RecordID:   "White",
			Payload:    `{"sha256":"abc"}`,
		})
		require.NoError(t, err)
	}
	return path
}

func TestVerifyCommand_Intact(t *testing.T) {
	path := seedTrail(t, 3)

	out, _, err := execute(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Chain intact (3 event(s))")
}

func TestVerifyCommand_IntactJSON(t *testing.T) {
	path := seedTrail(t, 2)

	out, _, err := execute(t, "--format", "json", "verify", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["intact"])
	assert.Equal(t, float64(2), data["events"])
}

func TestVerifyCommand_Tampered(t *testing.T) {
	path := seedTrail(t, 3)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE trail_events SET payload = ? WHERE seq = 2", `{"sha256":"forged"}`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, _, err := execute(t, "verify", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Trail broken at seq 2")
}

func TestVerifyCommand_TamperedJSON(t *testing.T) {
	path := seedTrail(t, 2)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM trail_events WHERE seq = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, _, err := execute(t, "--format", "json", "verify", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["intact"])
	assert.Equal(t, float64(2), data["seq"])
	assert.NotEmpty(t, data["reason"])
}

func TestVerifyCommand_EmptyChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	tr, err := trail.Open(path)
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	out, _, err := execute(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Chain intact (0 event(s))")
}
