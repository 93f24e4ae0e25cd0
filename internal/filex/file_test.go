package filex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestReadLimited_ReadsSmallFile(t *testing.T) {
	p := writeFile(t, "cv.pdf", []byte("resume"))

	got, err := ReadLimited(p, 10)
	require.NoError(t, err)
	require.Equal(t, []byte("resume"), got)
}

func TestReadLimited_ExactLimit(t *testing.T) {
	p := writeFile(t, "cv.pdf", []byte("12345"))

	got, err := ReadLimited(p, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

func TestReadLimited_TooLarge(t *testing.T) {
	p := writeFile(t, "cv.pdf", []byte("123456"))

	_, err := ReadLimited(p, 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTooLarge), "got %v", err)
}

func TestReadLimited_Missing(t *testing.T) {
	_, err := ReadLimited(filepath.Join(t.TempDir(), "nope"), 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestReadLimited_Directory(t *testing.T) {
	_, err := ReadLimited(t.TempDir(), 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a regular file")
}
