package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/store"
)

// encodeOrc writes a v1 Monster record and returns its path.
func encodeOrc(t *testing.T, dir string) string {
	t.Helper()
	values := filepath.Join(dir, "orc.yaml")
	require.NoError(t, os.WriteFile(values, []byte("Health: 40\nName: Orc\n"), 0644))

	out := filepath.Join(dir, "orc.rec")
	_, err := execute(t, NewEncodeCommand(textOpts()),
		"--schema", monsterV1, "--class", "Monster", "--values", values, "-o", out)
	require.NoError(t, err)
	return out
}

func TestEncode(t *testing.T) {
	dir := t.TempDir()
	values := filepath.Join(dir, "orc.yaml")
	require.NoError(t, os.WriteFile(values, []byte("Health: 40\nName: Orc\n"), 0644))
	out := filepath.Join(dir, "orc.rec")

	stdout, err := execute(t, NewEncodeCommand(jsonOpts()),
		"--schema", monsterV1, "--class", "Monster", "--values", values, "-o", out)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Monster", resp.Data.Class)
	assert.Equal(t, uint64(1), resp.Data.Version)
	assert.Equal(t, 2, resp.Data.Fields)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.Bytes, len(data))

	rec, err := object.OpenRecord(data, "orc.rec")
	require.NoError(t, err)
	assert.Equal(t, "Monster", rec.Header.Class)
}

func TestEncodeErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "x.rec")

	t.Run("unknown class", func(t *testing.T) {
		stdout, err := execute(t, NewEncodeCommand(textOpts()),
			"--schema", monsterV1, "--class", "Dragon", "-o", out)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, ErrCodeUnknownClass)
		assert.Contains(t, stdout, "[Monster]")
	})

	t.Run("undeclared field", func(t *testing.T) {
		values := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(values, []byte("Wings: 2\n"), 0644))
		stdout, err := execute(t, NewEncodeCommand(textOpts()),
			"--schema", monsterV1, "--class", "Monster", "--values", values, "-o", out)
		require.Error(t, err)
		assert.ErrorIs(t, err, object.ErrUnknownField)
		assert.Contains(t, stdout, ErrCodeBadValues)
	})

	t.Run("missing required flag", func(t *testing.T) {
		_, err := execute(t, NewEncodeCommand(textOpts()), "--schema", monsterV1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	assert.NoFileExists(t, out)
}

func TestInspect(t *testing.T) {
	path := encodeOrc(t, t.TempDir())

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, NewInspectCommand(textOpts()), path)
		require.NoError(t, err)
		assert.Contains(t, out, "Class:       Monster")
		assert.Contains(t, out, "Health IntProperty = 40")
		assert.Contains(t, out, "Name StrProperty = Orc")
		assert.Contains(t, out, "DeprecationVersion UInt64Property = 1")
		assert.Contains(t, out, "3 fields")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, NewInspectCommand(jsonOpts()), path)
		require.NoError(t, err)

		var resp struct {
			Status string        `json:"status"`
			Data   InspectResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "Monster", resp.Data.Class)
		assert.Equal(t, 3, resp.Data.Fields)
		assert.False(t, resp.Data.Truncated)
		assert.NotEmpty(t, resp.Data.Fingerprint)
		assert.JSONEq(t,
			`{"DeprecationVersion":{"type":"UInt64Property","values":[{"uint64":1}]},"Health":{"type":"IntProperty","values":[{"int32":40}]},"Name":{"type":"StrProperty","values":[{"name":"Orc"}]}}`,
			string(resp.Data.Tree))
	})
}

func TestInspectTruncatedRecord(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(encodeOrc(t, dir))
	require.NoError(t, err)

	// Cut into the end-of-list marker.
	cut := filepath.Join(dir, "cut.rec")
	require.NoError(t, os.WriteFile(cut, data[:len(data)-6], 0644))

	out, err := execute(t, NewInspectCommand(jsonOpts()), cut)
	require.NoError(t, err, "a truncated list is reported, not fatal")

	var resp struct {
		Data InspectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Truncated)
	assert.True(t, resp.Data.ShortStream)
	assert.NotEmpty(t, resp.Data.Reason)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, NewInspectCommand(textOpts()), "/nonexistent/x.rec")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportAndMigrate(t *testing.T) {
	for _, backend := range []string{"sqlite", "bolt", "badger"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			rec := encodeOrc(t, dir)
			db := filepath.Join(dir, "records")

			out, err := execute(t, NewImportCommand(jsonOpts()), "--db", db, "--backend", backend, rec)
			require.NoError(t, err)
			var imported struct {
				Data []ImportedRecord `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &imported))
			require.Len(t, imported.Data, 1)
			assert.Equal(t, uint64(1), imported.Data[0].Version)

			out, err = execute(t, NewMigrateCommand(textOpts()), "--db", db, "--backend", backend, "--schema", monsterV2)
			require.NoError(t, err)
			assert.Contains(t, out, "1 scanned, 1 migrated, 0 current")
			assert.Contains(t, out, "✓ Migration complete")

			b, err := store.ParseBackend(backend)
			require.NoError(t, err)
			st, err := store.Open(db, b)
			require.NoError(t, err)
			defer st.Close()

			recs, err := st.List(context.Background())
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, uint64(2), recs[0].Version)

			loaded, err := LoadSchema(monsterV2)
			require.NoError(t, err)
			file, err := object.OpenRecord(recs[0].Payload, "stored")
			require.NoError(t, err)
			inst, outcome, err := object.LoadRecord(file, loaded.Catalog, nil)
			require.NoError(t, err)
			assert.False(t, outcome.Outdated)
			hp, _ := inst.Get("HitPoints")
			assert.Equal(t, int32(40), hp)
			mana, _ := inst.Get("Mana")
			assert.Equal(t, int32(50), mana)
		})
	}
}

func TestMigrateDryRunJSON(t *testing.T) {
	dir := t.TempDir()
	rec := encodeOrc(t, dir)
	db := filepath.Join(dir, "records.db")

	_, err := execute(t, NewImportCommand(textOpts()), "--db", db, rec, rec)
	require.NoError(t, err)

	out, err := execute(t, NewMigrateCommand(jsonOpts()), "--db", db, "--schema", monsterV2, "--dry-run")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   MigrateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Scanned)
	assert.Equal(t, 2, resp.Data.Migrated)
	assert.True(t, resp.Data.DryRun)

	// nothing was written back
	out, err = execute(t, NewMigrateCommand(textOpts()), "--db", db, "--schema", monsterV2)
	require.NoError(t, err)
	assert.Contains(t, out, "2 scanned, 2 migrated")
}

func TestMigrateReportsFailures(t *testing.T) {
	dir := t.TempDir()
	rec := encodeOrc(t, dir)
	db := filepath.Join(dir, "records.db")
	_, err := execute(t, NewImportCommand(textOpts()), "--db", db, rec)
	require.NoError(t, err)

	// A schema without the Monster class cannot load the record.
	other := filepath.Join(dir, "other.cue")
	require.NoError(t, os.WriteFile(other, []byte("package game\n\nclass: Goblin: {\n\tversion: 1\n\tfields: {Name: \"string\"}\n}\n"), 0644))

	out, err := execute(t, NewMigrateCommand(textOpts()), "--db", db, "--schema", other)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, object.ErrUnknownClass)
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "1 failed")
}

func TestMigrateBadBackend(t *testing.T) {
	out, err := execute(t, NewMigrateCommand(textOpts()), "--db", t.TempDir(), "--backend", "mongo", "--schema", monsterV2)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unsupported backend")
}

func TestImportRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.rec")
	require.NoError(t, os.WriteFile(junk, []byte{1, 2, 3}, 0644))

	out, err := execute(t, NewImportCommand(textOpts()), "--db", filepath.Join(dir, "r.db"), junk)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBadRecord)
}
