package images

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagedAddAccumulates(t *testing.T) {
	p, err := NewTempPreviewer()
	require.NoError(t, err)
	defer p.Close()

	s := NewStaged(p)
	one := writeTempImage(t, "one.jpg")
	two := writeTempImage(t, "two.jpg")

	require.NoError(t, s.Add(one))
	require.NoError(t, s.Add(two))

	assert.Equal(t, []string{one, two}, s.Files())
	require.Len(t, s.Previews(), 2)
	for _, pv := range s.Previews() {
		assert.True(t, strings.HasPrefix(pv.FullURL, "file://"))
		assert.Equal(t, pv.FullURL, pv.ThumbURL)
		assert.Empty(t, pv.PublicID, "previews must not carry a public id")
	}
}

func TestResetRevokesEveryPreview(t *testing.T) {
	p, err := NewTempPreviewer()
	require.NoError(t, err)
	defer p.Close()

	s := NewStaged(p)
	require.NoError(t, s.Add(writeTempImage(t, "one.jpg"), writeTempImage(t, "two.jpg")))

	paths := make([]string, 0, 2)
	for _, pv := range s.Previews() {
		paths = append(paths, strings.TrimPrefix(pv.FullURL, "file://"))
	}
	require.Len(t, paths, 2)
	for _, path := range paths {
		_, err := os.Stat(path)
		require.NoError(t, err, "preview resource should exist before reset")
	}

	s.Reset()
	s.Reset() // idempotent

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Previews())
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "preview resource must be revoked")
	}
}

func TestRebuildDoesNotDoubleRevoke(t *testing.T) {
	p, err := NewTempPreviewer()
	require.NoError(t, err)
	defer p.Close()

	s := NewStaged(p)
	require.NoError(t, s.Add(writeTempImage(t, "one.jpg")))
	first := s.Previews()[0].FullURL

	// Adding another file rebuilds all previews; the old resource goes away
	// exactly once and a fresh one takes its place.
	require.NoError(t, s.Add(writeTempImage(t, "two.jpg")))
	_, err = os.Stat(strings.TrimPrefix(first, "file://"))
	assert.True(t, os.IsNotExist(err))
	require.Len(t, s.Previews(), 2)
}
