package uploads

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func TestSniffImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "png", data: pngHeader, want: "image/png"},
		{name: "gif", data: gifHeader, want: "image/gif"},
		{name: "jpeg", data: jpegHeader, want: "image/jpeg"},
		{name: "html", data: []byte("<html><script>alert(1)</script>"), wantErr: true},
		{name: "text", data: []byte("hello"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := SniffImage(test.data)
			if test.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestNewKey(t *testing.T) {
	t.Parallel()
	a, b := NewKey("clubs"), NewKey("clubs")
	assert.True(t, strings.HasPrefix(a, "clubs/"))
	assert.NotEqual(t, a, b)
}

func TestDiskStore(t *testing.T) {
	t.Parallel()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := t.Context()

	key := NewKey("clubs")
	require.NoError(t, store.Put(ctx, key, "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader))))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, key))
}

func TestDiskStore_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../evil", "/etc/passwd", "a/../../b", ""} {
		err := store.Put(t.Context(), key, "image/png", bytes.NewReader(pngHeader), 1)
		require.ErrorIs(t, err, ErrInvalidKey, key)
		_, err = store.Open(t.Context(), key)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	store, err := New(t.Context(), Config{Backend: BackendDisk, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DiskStore{}, store)

	_, err = New(t.Context(), Config{Backend: "ftp"})
	require.Error(t, err)

	_, err = New(t.Context(), Config{Backend: BackendS3})
	require.Error(t, err)
}
