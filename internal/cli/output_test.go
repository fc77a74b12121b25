package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E201", "record truncated", map[string]int{"offset": 12})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
	assert.Equal(t, "record truncated", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	require.NoError(t, formatter.Success("2 classes"))
	require.NoError(t, formatter.Error("E001", "failed", "extra"))
	formatter.Pass("%s ok", "Monster")
	formatter.Fail("%s broken", "Route")
	formatter.Warn("careful")
	formatter.Textf("plain %d\n", 7)

	out := buf.String()
	assert.Contains(t, out, "2 classes")
	assert.Contains(t, out, "Error [E001]: failed")
	assert.Contains(t, out, "Details: extra")
	assert.Contains(t, out, "✓ Monster ok")
	assert.Contains(t, out, "✗ Route broken")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "plain 7")
}

func TestOutputFormatter_TextHelpersSilentInJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	formatter.Pass("a")
	formatter.Fail("b")
	formatter.Warn("c")
	formatter.Textf("d")
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "monster.cue")

			assert.Empty(t, out.String(), "verbose logs never reach stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Processing monster.cue")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}
