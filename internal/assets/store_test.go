package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stu/pkg/types"
)

var (
	pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	gifData = append([]byte("GIF89a"), make([]byte, 32)...)
)

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "favicon")
	s := New(dir, "")

	p1, err := s.Save(pngData, "PNG", "https://a.test")
	require.NoError(t, err)
	p2, err := s.Save(pngData, ".png", "https://a.test")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p1, "/favicon/"))
	assert.True(t, strings.HasSuffix(p1, ".png"))
	assert.NotEqual(t, p1, p2, "names must be unique")
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(p1, "/favicon/"), ".png"), 32)

	got, err := os.ReadFile(s.Path(strings.TrimPrefix(p1, "/favicon/")))
	require.NoError(t, err)
	assert.Equal(t, pngData, got)
}

func TestSaveDefaultsExtension(t *testing.T) {
	s := New(t.TempDir(), "/static/icons")

	p, err := s.Save(pngData, "", "seed")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/static/icons/"))
	assert.True(t, strings.HasSuffix(p, ".png"))
}

func TestSaveUpload(t *testing.T) {
	transport := errors.New("connection reset")

	tests := []struct {
		name       string
		upload     types.Upload
		wantReason error
		wantExt    string
	}{
		{"png", types.Upload{Filename: "logo.png", Data: pngData}, nil, ".png"},
		{"gif with upper case name", types.Upload{Filename: "LOGO.GIF", Data: gifData}, nil, ".gif"},
		{"transport failure", types.Upload{Filename: "logo.png", Err: transport}, types.ErrUploadFailed, ""},
		{"empty body", types.Upload{Filename: "logo.png"}, types.ErrUploadFailed, ""},
		{"extension not allowed", types.Upload{Filename: "logo.exe", Data: pngData}, types.ErrUploadType, ""},
		{"content not an image", types.Upload{Filename: "logo.png", Data: []byte("<?php echo 1;")}, types.ErrUploadType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(t.TempDir(), "")

			p, err := s.SaveUpload(tt.upload)
			if tt.wantReason != nil {
				var ue *types.UploadError
				require.ErrorAs(t, err, &ue)
				assert.ErrorIs(t, err, tt.wantReason)
				assert.Empty(t, p)

				names, err := s.List()
				require.NoError(t, err)
				assert.Empty(t, names, "rejected uploads must not be written")
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(p, tt.wantExt))
		})
	}
}

func TestSaveUploadKeepsTransportCause(t *testing.T) {
	cause := errors.New("partial upload")
	_, err := New(t.TempDir(), "").SaveUpload(types.Upload{Filename: "a.png", Err: cause})
	assert.ErrorIs(t, err, cause)
}

func TestSaveUploadWriteFailure(t *testing.T) {
	// A regular file where the directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "favicon")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := New(blocker, "").SaveUpload(types.Upload{Filename: "a.png", Data: pngData})
	assert.ErrorIs(t, err, types.ErrUploadSave)
}

func TestDetectImage(t *testing.T) {
	mt, ok := DetectImage(pngData)
	assert.True(t, ok)
	assert.Equal(t, "image/png", mt)

	_, ok = DetectImage([]byte("<html><body>not found</body></html>"))
	assert.False(t, ok)

	ext, ok := ExtensionFor("image/vnd.microsoft.icon")
	assert.True(t, ok)
	assert.Equal(t, "ico", ext)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), pngData, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ico"), pngData, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ico", "b.png"}, names)
}

func TestListMissingDirectory(t *testing.T) {
	names, err := New(filepath.Join(t.TempDir(), "absent"), "").List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRotate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "favicon")
	s := New(dir, "")

	rotated, err := s.Rotate("2026-01-01-00-00-00")
	require.NoError(t, err)
	assert.Empty(t, rotated, "nothing to rotate")

	_, err = s.Save(pngData, "png", "x")
	require.NoError(t, err)

	rotated, err = s.Rotate("2026-01-01-00-00-00")
	require.NoError(t, err)
	assert.Equal(t, dir+"-2026-01-01-00-00-00", rotated)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	kept, err := os.ReadDir(rotated)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	require.NoError(t, s.Recreate())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
