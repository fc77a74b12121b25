package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/testutil"
	"github.com/roach88/propmig/internal/wire"
)

func TestFindTagRestoresCursor(t *testing.T) {
	s := testutil.NewStream("peek").Int32("Padding", 0)
	r := s.Int32("Health", 40).Struct("Stats", "Stats", func(s *testutil.Stream) {
		s.Int32("Inner", 1)
	}).Version(3).End().Reader()
	require.NoError(t, r.Seek(0))

	tag, found, err := FindTag(r, "DeprecationVersion")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, wire.KindUInt64, tag.Type)
	assert.Equal(t, int64(0), r.Tell())

	_, found, err = FindTag(r, "Inner")
	require.NoError(t, err)
	assert.False(t, found, "nested fields are skipped, not searched")
	assert.Equal(t, int64(0), r.Tell())
}

func TestFindTagStopsOnCorruption(t *testing.T) {
	r := testutil.NewStream("peek-bad").
		Int32("Health", 40).
		RawString("\x00").
		Version(3).
		End().
		Reader()

	_, found, err := FindTag(r, "DeprecationVersion")
	assert.False(t, found)
	assert.ErrorIs(t, err, wire.ErrInvalidName)
	assert.Equal(t, int64(0), r.Tell())
}

func TestFindTagMissingTerminator(t *testing.T) {
	r := testutil.NewStream("peek-eof").Int32("Health", 40).Reader()
	_, found, err := FindTag(r, "DeprecationVersion")
	require.NoError(t, err)
	assert.False(t, found)
}
