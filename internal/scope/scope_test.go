package scope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/decode"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/testutil"
	"github.com/roach88/propmig/internal/wire"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// handlerCall records one migration handler invocation.
type handlerCall struct {
	asset, code uint64
	tree        prop.Tree
}

func recordingHandler(calls *[]handlerCall) Handler[*monster] {
	return func(_ *monster, tree prop.Tree, asset, code uint64) error {
		*calls = append(*calls, handlerCall{asset: asset, code: code, tree: tree.Clone()})
		return nil
	}
}

// loadWithScope runs the normal loader inside a scope, the way a host
// wires it.
func loadWithScope(t *testing.T, r *wire.Reader, m *monster, h Handler[*monster], opts ...Option) Outcome {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	out, err := Run(m, r, h, func() error { return loadMonster(r, m) }, opts...)
	require.NoError(t, err)
	return out
}

func TestOrcRecordMigrates(t *testing.T) {
	cls := newMonsterClass("Orc", 5)
	r := testutil.NewStream("orc").
		Int32("Health", 40).
		Str("Name", "Orc").
		Strings("Tags", wire.KindSet, nil, "boss").
		Version(3).
		End().
		Reader()

	var calls []handlerCall
	m := cls.newMonster()
	out := loadWithScope(t, r, m, recordingHandler(&calls))

	require.Len(t, calls, 1)
	assert.Equal(t, uint64(3), calls[0].asset)
	assert.Equal(t, uint64(5), calls[0].code)

	tree := calls[0].tree
	assert.Equal(t, prop.Int32(40), tree["Health"].FirstValue())
	assert.Equal(t, prop.Name("Orc"), tree["Name"].FirstValue())
	assert.Equal(t, []prop.Value{prop.Name("boss")}, tree["Tags"].Values)

	assert.True(t, out.Outdated)
	assert.True(t, out.Migrated)
	assert.Equal(t, uint64(5), m.Version, "in-memory version advances to the code version")
	assert.Equal(t, int32(40), m.Health)
	assert.Equal(t, r.Len(), r.Tell())
	assert.Equal(t, out.Post, r.Tell())
}

func TestGateTable(t *testing.T) {
	tests := []struct {
		code, asset uint64
		want        bool
	}{
		{5, 0, true},
		{5, 3, true},
		{5, 4, true},
		{5, 5, false},
		{5, 7, false},
		{0, 0, false},
		{1, 0, true},
		{SavingSentinel - 1, SavingSentinel - 2, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Gate(tt.code, tt.asset), "Gate(%d, %d)", tt.code, tt.asset)
	}
}

func TestHandlerInvokedIffOutdated(t *testing.T) {
	const code = 5
	for _, asset := range []uint64{0, 1, 4, 5, 6, 100} {
		t.Run(fmt.Sprintf("asset_%d", asset), func(t *testing.T) {
			cls := newMonsterClass("Gate", code)
			r := testutil.NewStream("gate").Int32("Health", 7).Version(asset).End().Reader()

			var calls []handlerCall
			m := cls.newMonster()
			out := loadWithScope(t, r, m, recordingHandler(&calls))

			assert.Equal(t, code > asset, len(calls) == 1)
			assert.LessOrEqual(t, len(calls), 1)
			assert.Equal(t, uint64(code), m.Version, "version is advanced regardless of the gate")
			assert.Equal(t, asset, out.AssetVersion)
		})
	}
}

func TestMissingVersionTagMeansVersionZero(t *testing.T) {
	cls := newMonsterClass("Legacy", 2)
	r := testutil.NewStream("legacy").Int32("Health", 12).End().Reader()

	var calls []handlerCall
	m := cls.newMonster()
	// The loader leaves Version at the class default; the scope must still
	// report the asset as version 0.
	out := loadWithScope(t, r, m, recordingHandler(&calls))

	require.Len(t, calls, 1)
	assert.Equal(t, uint64(0), calls[0].asset)
	assert.Equal(t, uint64(0), out.AssetVersion)
	assert.Equal(t, uint64(2), m.Version)
}

func TestSaveThenLoadIsIdempotent(t *testing.T) {
	cls := newMonsterClass("RoundTrip", 4)
	src := cls.newMonster()
	src.Health = 55
	src.Name = "Troll"

	w := wire.NewWriter("roundtrip")
	sc, err := Begin(src, w, nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, sc.Saving())
	assert.True(t, sc.ForceEmit(DefaultVersionField))
	assert.False(t, sc.ForceEmit("Health"))
	saveMonster(w, src, sc)
	out, err := sc.End()
	require.NoError(t, err)
	assert.False(t, out.Loading)
	assert.False(t, sc.Saving())

	var calls []handlerCall
	dst := cls.newMonster()
	out = loadWithScope(t, wire.NewReader(w.Bytes(), "roundtrip"), dst, recordingHandler(&calls))

	assert.Empty(t, calls)
	assert.False(t, out.Outdated)
	assert.Equal(t, uint64(4), out.AssetVersion)
	assert.Equal(t, uint64(4), out.CodeVersion)
	assert.Equal(t, "Troll", dst.Name)
}

func TestSaveWithoutScopeOmitsVersion(t *testing.T) {
	// The delta serializer skips the version field when it equals the class
	// default; a later load then sees version 0 and migrates needlessly.
	// The save scope exists to prevent exactly this.
	cls := newMonsterClass("NoScope", 4)
	src := cls.newMonster()
	w := wire.NewWriter("noscope")
	saveMonster(w, src, nil)

	_, found, err := decode.FindTag(wire.NewReader(w.Bytes(), "noscope"), DefaultVersionField)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveDoesNotTouchClassDefault(t *testing.T) {
	cls := newMonsterClass("Shared", 9)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := cls.newMonster()
			w := wire.NewWriter("concurrent")
			sc, err := Begin(m, w, nil, WithLogger(quietLogger()))
			if !assert.NoError(t, err) {
				return
			}
			v, ok := sc.ShadowDefault(DefaultVersionField)
			assert.True(t, ok)
			assert.Equal(t, SavingSentinel, v)
			saveMonster(w, m, sc)
			_, err = sc.End()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(9), cls.def.Version, "class default is never mutated by saves")
}

func TestShadowDefaultOtherFields(t *testing.T) {
	cls := newMonsterClass("Shadow", 1)
	sc, err := Begin(cls.newMonster(), wire.NewWriter("s"), nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	_, ok := sc.ShadowDefault("Health")
	assert.False(t, ok)

	_, err = sc.End()
	require.NoError(t, err)
	_, ok = sc.ShadowDefault(DefaultVersionField)
	assert.False(t, ok, "shadow only applies while the save is open")
}

func TestSentinelCodeVersionIsFatal(t *testing.T) {
	cls := newMonsterClass("Broken", SavingSentinel)
	r := testutil.NewStream("broken").End().Reader()

	_, err := Begin(cls.newMonster(), r, nil, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSentinelVersion)
	assert.True(t, IsConfigError(err))

	var se *ScopeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Broken", se.Class)
	assert.Equal(t, "broken", se.Archive)
	assert.Equal(t, DefaultVersionField, se.Field)

	_, err = Begin(cls.newMonster(), wire.NewWriter("w"), nil, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, ErrSentinelVersion, "the save path rejects the sentinel too")
}

func TestMissingVersionFieldDegradesAndReportsOnce(t *testing.T) {
	cls := newMonsterClass("NoVersionField_"+t.Name(), 3)
	cls.versionField = ""

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	for i := 0; i < 3; i++ {
		r := testutil.NewStream("nofield").Int32("Health", 1).Version(1).End().Reader()
		var calls []handlerCall
		m := cls.newMonster()
		out, err := Run(m, r, recordingHandler(&calls), func() error { return loadMonster(r, m) }, WithLogger(logger))
		require.NoError(t, err)
		assert.True(t, out.Degraded)
		assert.Empty(t, calls, "degraded scopes treat every record as current")
		assert.Equal(t, r.Len(), r.Tell())
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "Version property not found"))
}

func TestCursorNonInterference(t *testing.T) {
	build := func() *wire.Reader {
		s := testutil.NewStream("cursor").Int32("Header", 0).End()
		start := s.Len()
		s.Int32("Health", 40).Str("Name", "Orc").Version(1).End()
		s.Int32("Trailer", 9)
		r := s.Reader()
		require.NoError(t, r.Seek(start))
		return r
	}

	// Without a scope
	plain := build()
	m := newMonsterClass("Cursor", 3).newMonster()
	require.NoError(t, loadMonster(plain, m))
	want := plain.Tell()

	// With a migrating scope
	scoped := build()
	var calls []handlerCall
	m2 := newMonsterClass("Cursor", 3).newMonster()
	out := loadWithScope(t, scoped, m2, recordingHandler(&calls))

	require.Len(t, calls, 1)
	assert.Equal(t, want, scoped.Tell())
	assert.Equal(t, want, out.Post)
	assert.Len(t, calls[0].tree, 3, "only the scoped record's list is decoded")

	next, err := wire.ReadTag(scoped)
	require.NoError(t, err)
	assert.Equal(t, "Trailer", next.Name)
}

func TestPeekDoesNotMoveCursor(t *testing.T) {
	cls := newMonsterClass("Peek", 2)
	r := testutil.NewStream("peek").Int32("Health", 3).Version(1).End().Reader()

	sc, err := Begin(cls.newMonster(), r, nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Tell())
	sc.Abort()
}

func TestHandlerErrorStillRestoresCursor(t *testing.T) {
	cls := newMonsterClass("Failing", 2)
	r := testutil.NewStream("failing").Int32("Health", 3).Version(1).End().Reader()
	m := cls.newMonster()

	boom := errors.New("cannot map old health")
	h := func(*monster, prop.Tree, uint64, uint64) error { return boom }

	out, err := Run(m, r, h, func() error { return loadMonster(r, m) }, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsHandlerError(err))
	assert.False(t, IsConfigError(err))
	assert.Equal(t, r.Len(), r.Tell())
	assert.Equal(t, out.Post, r.Tell())
}

func TestTreeReleasedAfterScope(t *testing.T) {
	cls := newMonsterClass("Retain", 2)
	r := testutil.NewStream("retain").Int32("Health", 3).End().Reader()
	m := cls.newMonster()

	var retained prop.Tree
	h := func(_ *monster, tree prop.Tree, _, _ uint64) error {
		retained = tree
		assert.Len(t, tree, 1)
		return nil
	}
	loadWithScope(t, r, m, h)

	require.NotNil(t, retained)
	assert.Empty(t, retained, "trees do not outlive the scope")
}

func TestNotLoadableArchive(t *testing.T) {
	cls := newMonsterClass("Odd", 2)
	_, err := Begin(cls.newMonster(), writerOnly{}, nil, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, ErrNotLoadable)
	assert.True(t, IsConfigError(err))
}

func TestEndIsIdempotent(t *testing.T) {
	cls := newMonsterClass("Twice", 2)
	r := testutil.NewStream("twice").Int32("Health", 3).End().Reader()
	m := cls.newMonster()

	calls := 0
	h := func(*monster, prop.Tree, uint64, uint64) error { calls++; return nil }

	sc, err := Begin(m, r, h, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, loadMonster(r, m))

	first, err := sc.End()
	require.NoError(t, err)
	second, err := sc.End()
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestRunAbortsOnLoadError(t *testing.T) {
	cls := newMonsterClass("Abort", 2)
	r := testutil.NewStream("abort").Int32("Health", 3).End().Reader()
	m := cls.newMonster()

	calls := 0
	h := func(*monster, prop.Tree, uint64, uint64) error { calls++; return nil }
	loadErr := errors.New("disk on fire")

	_, err := Run(m, r, h, func() error { return loadErr }, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, loadErr)
	assert.Zero(t, calls)
}

func TestCustomVersionField(t *testing.T) {
	cls := newMonsterClass("Custom", 3)
	cls.versionField = "SchemaRev"
	r := testutil.NewStream("custom").
		Int32("Health", 3).
		UInt64("SchemaRev", 1).
		Version(99).
		End().
		Reader()
	m := cls.newMonster()

	var calls []handlerCall
	loadWithScope(t, r, m, recordingHandler(&calls), WithVersionField("SchemaRev"))

	require.Len(t, calls, 1)
	assert.Equal(t, uint64(1), calls[0].asset)
	assert.Contains(t, calls[0].tree, "DeprecationVersion", "other fields named like the default are plain data")
}

func TestCorruptStreamStillMigratesPartialTree(t *testing.T) {
	cls := newMonsterClass("Corrupt", 3)
	r := testutil.NewStream("corrupt").
		Int32("Health", 40).
		RawString("\x07bad").
		Reader()
	m := cls.newMonster()

	var calls []handlerCall
	sc, err := Begin(m, r, recordingHandler(&calls), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Error(t, loadMonster(r, m), "the normal loader sees the corruption too")
	out, err := sc.End()
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, uint64(0), calls[0].asset)
	assert.Len(t, calls[0].tree, 1)
	assert.True(t, out.Report.Truncated)
}

func TestScopeErrorMessage(t *testing.T) {
	err := &ScopeError{Code: CodeHandlerFailed, Class: "Orc", Field: "V", Archive: "a", Err: errors.New("x")}
	assert.Equal(t, "HANDLER_FAILED: x (class=Orc, field=V, archive=a)", err.Error())
	assert.True(t, IsHandlerError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsHandlerError(errors.New("plain")))
}
