package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// Stage names a step of a restore.
type Stage string

// Restore stages, in execution order.
const (
	StageBackupExisting    Stage = "backup_existing"
	StageOpenArchive       Stage = "open_archive"
	StageExtract           Stage = "extract_to_temp"
	StageValidateManifest  Stage = "validate_manifest"
	StageClearTables       Stage = "clear_tables"
	StageRestoreCategories Stage = "restore_categories"
	StageRestoreProjects   Stage = "restore_projects"
	StageRestoreAssets     Stage = "restore_assets"
	StageCleanup           Stage = "cleanup_temp"
	StageDone              Stage = "done"
)

// destructive reports whether a failure at s leaves the store partially
// restored.
func (s Stage) destructive() bool {
	switch s {
	case StageClearTables, StageRestoreCategories, StageRestoreProjects, StageRestoreAssets, StageCleanup, StageDone:
		return true
	}
	return false
}

// RestoreError reports the stage a restore failed at. Partial is set when
// the tables had already been cleared.
type RestoreError struct {
	Stage   Stage
	Partial bool
	Err     error
}

func (e *RestoreError) Error() string {
	msg := fmt.Sprintf("restore failed at %s: %v", e.Stage, e.Err)
	if e.Partial {
		msg += " (data partially restored)"
	}
	return msg
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// Target is the store a snapshot is restored into.
type Target interface {
	RotateAside(stamp string) (string, error)
	RowWriter() (types.RowWriter, error)
	WithinTx(ctx context.Context, fn func(types.RowWriter) error) error
	EnsureSchema(ctx context.Context) error
}

// AssetDir is the favicon directory a snapshot's files are restored into.
type AssetDir interface {
	Dir() string
	Rotate(stamp string) (string, error)
	Recreate() error
}

// Importer restores snapshots.
type Importer struct {
	target   Target
	assets   AssetDir
	atomic   bool
	maxBytes int64
	log      logrus.FieldLogger
	now      func() time.Time
}

// DefaultMaxExtractBytes caps the bytes extracted from one archive.
const DefaultMaxExtractBytes int64 = 256 << 20

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithAtomicTables loads the tables inside a single transaction so a failed
// load leaves them empty rather than half filled.
func WithAtomicTables(on bool) ImporterOption {
	return func(i *Importer) { i.atomic = on }
}

// WithMaxExtractBytes caps the total bytes extracted from an archive.
// Zero disables the cap.
func WithMaxExtractBytes(n int64) ImporterOption {
	return func(i *Importer) { i.maxBytes = n }
}

// NewImporter returns an Importer writing to target and assets.
func NewImporter(target Target, assets AssetDir, logger logrus.FieldLogger, opts ...ImporterOption) *Importer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	i := &Importer{
		target:   target,
		assets:   assets,
		maxBytes: DefaultMaxExtractBytes,
		log:      logger.WithField("component", "backup"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// manifest is the decoded table content of a snapshot.
type manifest struct {
	categories []types.Row
	projects   []types.Row
	favicons   string
}

// Restore replaces the store content with the snapshot in r. The current
// database and asset directory are renamed aside first and never deleted.
// Errors are *RestoreError.
func (i *Importer) Restore(ctx context.Context, r io.ReaderAt, size int64) error {
	stamp := i.now().Format(rotationStampLayout)
	log := i.log.WithField("stamp", stamp)

	stage := func(s Stage) { log.WithField("stage", s).Debug("restore stage") }
	fail := func(s Stage, err error) *RestoreError {
		log.WithField("stage", s).WithError(err).Error("restore failed")
		return &RestoreError{Stage: s, Partial: s.destructive(), Err: err}
	}

	stage(StageBackupExisting)
	rotatedDB, err := i.target.RotateAside(stamp)
	if err != nil {
		return fail(StageBackupExisting, err)
	}
	rotatedAssets, err := i.assets.Rotate(stamp)
	if err != nil {
		return fail(StageBackupExisting, err)
	}
	log.WithFields(logrus.Fields{"database": rotatedDB, "assets": rotatedAssets}).Info("existing data rotated aside")

	stage(StageOpenArchive)
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fail(StageOpenArchive, fmt.Errorf("%w: %v", types.ErrInvalidArchive, err))
	}

	stage(StageExtract)
	tmpDir, err := os.MkdirTemp("", "stu-restore-")
	if err != nil {
		return fail(StageExtract, fmt.Errorf("creating staging directory: %w", err))
	}
	defer func() {
		stage(StageCleanup)
		if err := os.RemoveAll(tmpDir); err != nil {
			log.WithError(err).Warn("removing staging directory")
		}
	}()
	if err := extract(zr, tmpDir, i.maxBytes); err != nil {
		return fail(StageExtract, err)
	}

	stage(StageValidateManifest)
	m, err := readManifest(tmpDir)
	if err != nil {
		return fail(StageValidateManifest, err)
	}

	if i.atomic {
		var failed Stage
		err := i.target.WithinTx(ctx, func(w types.RowWriter) error {
			var err error
			failed, err = i.loadTables(ctx, w, m, stage)
			return err
		})
		if err != nil {
			if failed == "" {
				failed = StageClearTables
			}
			// Rolled back: the tables hold the freshly rotated state.
			rerr := fail(failed, err)
			rerr.Partial = false
			return rerr
		}
	} else {
		w, err := i.target.RowWriter()
		if err != nil {
			return fail(StageClearTables, err)
		}
		if failed, err := i.loadTables(ctx, w, m, stage); err != nil {
			return fail(failed, err)
		}
	}
	log.WithFields(logrus.Fields{
		"categories": len(m.categories),
		"projects":   len(m.projects),
	}).Info("tables restored")

	stage(StageRestoreAssets)
	n, err := i.restoreAssets(m.favicons)
	if err != nil {
		return fail(StageRestoreAssets, err)
	}
	log.WithField("files", n).Info("favicons restored")

	stage(StageDone)
	if err := i.target.EnsureSchema(ctx); err != nil {
		return fail(StageDone, err)
	}
	log.Info("restore completed")
	return nil
}

// loadTables clears the tables and inserts the snapshot rows, categories
// first. It returns the stage that failed.
func (i *Importer) loadTables(ctx context.Context, w types.RowWriter, m *manifest, stage func(Stage)) (Stage, error) {
	stage(StageClearTables)
	if err := w.ClearTables(ctx); err != nil {
		return StageClearTables, err
	}
	for _, table := range types.SnapshotTables {
		n, err := w.CountRows(ctx, table)
		if err != nil {
			return StageClearTables, err
		}
		if n > 0 {
			return StageClearTables, fmt.Errorf("%w: %s has %d rows", types.ErrStoreNotEmpty, table, n)
		}
	}

	stage(StageRestoreCategories)
	if err := w.InsertRows(ctx, types.TableCategories, m.categories); err != nil {
		return StageRestoreCategories, err
	}

	stage(StageRestoreProjects)
	if err := w.InsertRows(ctx, types.TableProjects, m.projects); err != nil {
		return StageRestoreProjects, err
	}
	return "", nil
}

// restoreAssets recreates the asset directory and copies the extracted
// favicons into it.
func (i *Importer) restoreAssets(src string) (int, error) {
	if err := i.assets.Recreate(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(src)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading extracted favicons: %w", err)
	}

	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		dst := filepath.Join(i.assets.Dir(), e.Name())
		if err := copyFile(filepath.Join(src, e.Name()), dst, 0o666); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// extract writes every file entry of zr below dir. Entries that would
// land outside dir are rejected, as is an archive whose entries expand
// past limit bytes in total. A zero limit is unbounded.
func extract(zr *zip.Reader, dir string, limit int64) error {
	budget := limit
	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, `\`, "/"))
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("%w: entry %q escapes the archive", types.ErrInvalidArchive, f.Name)
		}
		dst := filepath.Join(dir, filepath.FromSlash(name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		n, err := extractFile(f, dst, limit > 0, budget)
		if err != nil {
			return err
		}
		budget -= n
	}
	return nil
}

// extractFile copies f to dst. When capped it fails once more than budget
// bytes would be written.
func extractFile(f *zip.File, dst string, capped bool, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %v", types.ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if capped {
		src = io.LimitReader(rc, budget+1)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("%w: extracting %s: %v", types.ErrInvalidArchive, f.Name, err)
	}
	if capped && n > budget {
		out.Close()
		return n, fmt.Errorf("%w: %s exceeds the extraction limit", types.ErrInvalidArchive, f.Name)
	}
	return n, out.Close()
}

// readManifest loads and checks both table files from an extracted
// snapshot.
func readManifest(dir string) (*manifest, error) {
	m := &manifest{favicons: filepath.Join(dir, strings.TrimSuffix(FaviconsDir, "/"))}

	for _, entry := range []struct {
		name string
		dst  *[]types.Row
	}{
		{CategoriesEntry, &m.categories},
		{ProjectsEntry, &m.projects},
	} {
		rows, err := readRows(filepath.Join(dir, entry.name))
		if err != nil {
			return nil, err
		}
		if err := checkUniqueIDs(entry.name, rows); err != nil {
			return nil, err
		}
		*entry.dst = rows
	}
	return m, nil
}

func readRows(file string) ([]types.Row, error) {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrMissingManifest, filepath.Base(file))
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(file), err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rows []types.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array of objects: %v", types.ErrInvalidArchive, filepath.Base(file), err)
	}
	if rows == nil {
		rows = []types.Row{}
	}
	return rows, nil
}

func checkUniqueIDs(name string, rows []types.Row) error {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		id, ok := row["id"]
		if !ok || id == nil {
			continue
		}
		key := fmt.Sprint(id)
		if seen[key] {
			return fmt.Errorf("%w: id %s repeats in %s", types.ErrDuplicateKey, key, name)
		}
		seen[key] = true
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}
