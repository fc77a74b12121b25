package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	schemasDir = filepath.Join("..", "harness", "testdata", "schemas")
	monsterV1  = filepath.Join(schemasDir, "monster_v1.cue")
	monsterV2  = filepath.Join(schemasDir, "monster_v2.cue")
	gameSchema = filepath.Join("..", "schema", "testdata", "game")
)

func TestValidateValidSchema(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), monsterV2)
	require.NoError(t, err)

	assert.Contains(t, out, "Monster v2 (DeprecationVersion, 3 fields)")
	assert.Contains(t, out, "rename  Health -> HitPoints")
	assert.Contains(t, out, "default Mana = 50")
	assert.Contains(t, out, "✓ Schema valid")
}

func TestValidateDirectoryJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(jsonOpts()), gameSchema)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Files)
	require.Len(t, resp.Data.Classes, 2)
	assert.Equal(t, "Monster", resp.Data.Classes[0].Name)
	assert.Equal(t, uint64(5), resp.Data.Classes[0].Version)
	assert.Equal(t, []string{"Waypoint"}, resp.Data.Structs)
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), "/nonexistent/schemas")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidateBrokenSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	src := "package game\n\nclass: Monster: {\n\tfields: {Health: \"int32\"}\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, NewValidateCommand(textOpts()), path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "✗ Validation failed")
		assert.Contains(t, out, ErrCodeLoadFailed)
		assert.Contains(t, out, "version")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, NewValidateCommand(jsonOpts()), path)
		require.Error(t, err)

		var resp struct {
			Status string           `json:"status"`
			Data   ValidationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.False(t, resp.Data.Valid)
		require.NotNil(t, resp.Data.Error)
		assert.Equal(t, ErrCodeLoadFailed, resp.Data.Error.Code)
	})
}

func TestValidateBadRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.cue")
	src := `package game

class: Monster: {
	version: 2
	fields: {HitPoints: "int32"}
	migrate: rename: {Health: "Vitality"}
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	out, err := execute(t, NewValidateCommand(textOpts()), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBuildFailed)
	assert.Contains(t, out, "Vitality")
}
