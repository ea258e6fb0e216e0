// Package assets manages the public favicon directory. Files are named
// <md5>.<ext> and the directory is created on first write.
package assets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// DefaultPrefix is the URL path under which assets are served.
const DefaultPrefix = "/favicon/"

// Extensions accepted for favicon files.
var Extensions = []string{"png", "jpg", "jpeg", "ico", "gif", "svg", "webp"}

// MIME types accepted for favicon content.
var MIMETypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/x-icon",
	"image/vnd.microsoft.icon",
	"image/svg+xml",
	"image/webp",
}

// mimeExt maps an accepted MIME type to the extension it is stored under.
var mimeExt = map[string]string{
	"image/png":                "png",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
	"image/svg+xml":            "svg",
	"image/webp":               "webp",
}

// Store writes and enumerates favicon files in a single directory.
type Store struct {
	dir    string
	prefix string
	now    func() time.Time
}

// New returns a Store rooted at dir whose files are addressed publicly as
// prefix + name. An empty prefix selects DefaultPrefix.
func New(dir, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{dir: dir, prefix: prefix, now: time.Now}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Prefix returns the public path prefix, always ending in "/".
func (s *Store) Prefix() string {
	return s.prefix
}

// Save writes data under a fresh hashed name with extension ext and
// returns its public path. seed is mixed into the name, usually the source
// URL or the uploaded file name.
func (s *Store) Save(data []byte, ext, seed string) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "png"
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating asset directory: %w", err)
	}

	name := s.fileName(seed) + "." + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing asset %s: %w", name, err)
	}
	return s.prefix + name, nil
}

// fileName derives a unique, unguessable base name.
func (s *Store) fileName(seed string) string {
	sum := md5.Sum([]byte(strconv.FormatInt(s.now().UnixNano(), 10) + seed + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// SaveUpload validates and stores a client upload. It returns a
// *types.UploadError when the transport failed, the file type is not
// allowed or the file cannot be written.
func (s *Store) SaveUpload(u types.Upload) (string, error) {
	if u.Err != nil {
		return "", &types.UploadError{Reason: types.ErrUploadFailed, Err: u.Err}
	}
	if len(u.Data) == 0 {
		return "", &types.UploadError{Reason: types.ErrUploadFailed}
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Filename)), ".")
	if !lo.Contains(Extensions, ext) {
		return "", &types.UploadError{Reason: types.ErrUploadType, Err: fmt.Errorf("extension %q", ext)}
	}
	if mt, ok := DetectImage(u.Data); !ok {
		return "", &types.UploadError{Reason: types.ErrUploadType, Err: fmt.Errorf("content type %q", mt)}
	}

	p, err := s.Save(u.Data, ext, u.Filename)
	if err != nil {
		return "", &types.UploadError{Reason: types.ErrUploadSave, Err: err}
	}
	return p, nil
}

// DetectImage sniffs data and reports its MIME type and whether it is an
// accepted favicon type.
func DetectImage(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if lo.Contains(MIMETypes, m.String()) {
			return m.String(), true
		}
	}
	return mt.String(), false
}

// ExtensionFor returns the stored extension for an accepted MIME type.
func ExtensionFor(mime string) (string, bool) {
	ext, ok := mimeExt[mime]
	return ext, ok
}

// List returns the names of the regular files in the store, sorted.
// .gitignore and subdirectories are skipped. A missing directory yields
// no names.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset directory: %w", err)
	}

	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.Type().IsRegular() && e.Name() != ".gitignore"
	})
	sort.Strings(names)
	return names, nil
}

// Path returns the filesystem path of a stored file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Rotate renames the directory to <dir>-<stamp> and returns the new path,
// or "" when the directory does not exist.
func (s *Store) Rotate(stamp string) (string, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("stat asset directory: %w", err)
	}

	rotated := filepath.Clean(s.dir) + "-" + stamp
	if err := os.Rename(s.dir, rotated); err != nil {
		return "", fmt.Errorf("rotating asset directory: %w", err)
	}
	return rotated, nil
}

// Recreate creates the directory with mode 0777.
func (s *Store) Recreate() error {
	if err := os.MkdirAll(s.dir, 0o777); err != nil {
		return fmt.Errorf("creating asset directory: %w", err)
	}
	return os.Chmod(s.dir, 0o777)
}
