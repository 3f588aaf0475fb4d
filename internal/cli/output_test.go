package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "verification failed")
	assert.Equal(t, "verification failed", err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(err))

	wrapped := WrapExitError(ExitCommandError, "failed to open trail", errors.New("no such file"))
	assert.Equal(t, "failed to open trail: no such file", wrapped.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := WrapExitError(ExitCommandError, "outer", inner)
	assert.True(t, errors.Is(err, inner))
}

func TestGetExitCode_PlainError(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestGetExitCode_WrappedExitError(t *testing.T) {
	err := fmt.Errorf("context: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFormatterSuccess_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"events": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestFormatterError_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("EMPTY_INPUT", "no groups", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_INPUT", resp.Error.Code)
	assert.Equal(t, "no groups", resp.Error.Message)
}

func TestFormatterError_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("INVALID_STRATEGY", "unknown reference strategy", nil))
	assert.Contains(t, buf.String(), "Error [INVALID_STRATEGY]: unknown reference strategy")
}

func TestVerboseLog(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("loaded %d rows", 10)
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON on stdout")
	assert.Contains(t, errOut.String(), "loaded 10 rows")

	f.Verbose = false
	errOut.Reset()
	f.VerboseLog("hidden")
	assert.Empty(t, errOut.String())
}
