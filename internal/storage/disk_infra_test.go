package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveOpenRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	d, err := NewDiskStore(dir)
	require.NoError(t, err)

	asset, err := d.Save(context.Background(), strings.NewReader("audio-bytes"), "Hello.WAV", "audio/wav")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(asset.Path))
	assert.Equal(t, ".wav", filepath.Ext(asset.Path))
	assert.Equal(t, "Hello.WAV", asset.OriginalName)
	assert.EqualValues(t, len("audio-bytes"), asset.Size)
	assert.Equal(t, "audio/wav", asset.ContentType)

	rc, err := d.Open(asset)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "audio-bytes", string(data))

	require.NoError(t, d.Remove(asset))
	_, err = os.Stat(asset.Path)
	assert.True(t, os.IsNotExist(err))

	// повторное удаление не ошибка
	assert.NoError(t, d.Remove(asset))
}

func TestDiskStore_FileNamesAreUnique(t *testing.T) {
	d, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := d.FileName("../../etc/clip.mp3")
		assert.False(t, seen[name], "duplicate name %s", name)
		assert.NotContains(t, name, "/")
		assert.True(t, strings.HasSuffix(name, ".mp3"))
		seen[name] = true
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestDiskStore_SaveFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDiskStore(dir)
	require.NoError(t, err)

	_, err = d.Save(context.Background(), failingReader{}, "a.wav", "")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubArchiver struct {
	url string
	err error
	got *Asset
}

func (s *stubArchiver) Archive(_ context.Context, asset *Asset) (string, error) {
	s.got = asset
	return s.url, s.err
}

func TestService_Finish(t *testing.T) {
	d, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	t.Run("keeps file without archiver", func(t *testing.T) {
		svc := NewService(d, nil, true, nil)
		asset, err := svc.Save(context.Background(), strings.NewReader("x"), "a.wav", "")
		require.NoError(t, err)

		url, err := svc.Finish(context.Background(), asset)
		require.NoError(t, err)
		assert.Empty(t, url)
		assert.FileExists(t, asset.Path)
	})

	t.Run("archives and removes", func(t *testing.T) {
		arch := &stubArchiver{url: "https://s3/bucket/audio/a.wav"}
		svc := NewService(d, arch, false, nil)
		asset, err := svc.Save(context.Background(), strings.NewReader("x"), "a.wav", "")
		require.NoError(t, err)

		url, err := svc.Finish(context.Background(), asset)
		require.NoError(t, err)
		assert.Equal(t, arch.url, url)
		assert.Same(t, asset, arch.got)
		assert.NoFileExists(t, asset.Path)
	})

	t.Run("archive failure keeps file", func(t *testing.T) {
		arch := &stubArchiver{err: errors.New("bucket gone")}
		svc := NewService(d, arch, false, nil)
		asset, err := svc.Save(context.Background(), strings.NewReader("x"), "a.wav", "")
		require.NoError(t, err)

		_, err = svc.Finish(context.Background(), asset)
		assert.ErrorContains(t, err, "bucket gone")
		assert.FileExists(t, asset.Path)
	})
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(&Asset{Path: "uploads/1700000000000-abc.wav"})
	assert.True(t, strings.HasPrefix(key, "audio/"))
	assert.True(t, strings.HasSuffix(key, "/1700000000000-abc.wav"))
}
