package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumePointMissingFile(t *testing.T) {
	resume, err := ResumePoint(filepath.Join(t.TempDir(), "nope.md"))
	require.NoError(t, err)
	assert.Equal(t, 0, resume)
}

func TestResumePointNoMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nsome prose\n"), 0o644))

	resume, err := ResumePoint(path)
	require.NoError(t, err)
	assert.Equal(t, 0, resume)
}

func TestResumePointUsesMaxMarker(t *testing.T) {
	content := "# Title\n\n" +
		"## Page 1\n\nfirst\n\n" +
		"## Page 3\n\nthird\n\n" +
		"## Page 2\n\nsecond\n\n"
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	resume, err := ResumePoint(path)
	require.NoError(t, err)
	assert.Equal(t, 3, resume, "sparse markers resume at the maximum")
}

func TestResumePointIgnoresNonMarkerLines(t *testing.T) {
	content := "## Page 2\n\nPage 99 is mentioned here\n### Page 50\n\n"
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	resume, err := ResumePoint(path)
	require.NoError(t, err)
	assert.Equal(t, 2, resume)
}

func TestIsComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("## Page 5\n\nend\n"), 0o644))

	done, err := IsComplete(path, 5)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = IsComplete(path, 6)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestOpenFreshWritesTitleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")

	w, err := Open(path, "My Book", false)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# My Book\n\n", string(data))
}

func TestAppendPageFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")

	w, err := Open(path, "Doc", false)
	require.NoError(t, err)
	require.NoError(t, w.AppendPage(1, "hello world"))
	require.NoError(t, w.AppendPage(2, "  \n\t"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Doc\n\n## Page 1\n\nhello world\n\n## Page 2\n\nNo content.\n\n", string(data))

	resume, err := ResumePoint(path)
	require.NoError(t, err)
	assert.Equal(t, 2, resume, "written pages are immediately scannable")
}

func TestOpenResumeAppendsWithoutNewHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")

	w, err := Open(path, "Doc", false)
	require.NoError(t, err)
	require.NoError(t, w.AppendPage(1, "one"))
	require.NoError(t, w.Close())

	w, err = Open(path, "Doc", true)
	require.NoError(t, err)
	require.NoError(t, w.AppendPage(2, "two"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Doc\n\n## Page 1\n\none\n\n## Page 2\n\ntwo\n\n", string(data))
}
