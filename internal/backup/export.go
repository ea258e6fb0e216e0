package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// RowSource dumps whole tables.
type RowSource interface {
	DumpRows(ctx context.Context, table string) ([]types.Row, error)
}

// AssetLister enumerates stored asset files.
type AssetLister interface {
	List() ([]string, error)
	Path(name string) string
}

// Exporter builds snapshot archives. It never writes to the store.
type Exporter struct {
	rows   RowSource
	assets AssetLister
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewExporter returns an Exporter reading rows and assets.
func NewExporter(rows RowSource, assets AssetLister, logger logrus.FieldLogger) *Exporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Exporter{
		rows:   rows,
		assets: assets,
		log:    logger.WithField("component", "backup"),
		now:    time.Now,
	}
}

// Archive is a staged snapshot held in a temporary file.
type Archive struct {
	Name string
	Size int64
	path string
}

// WriteTo streams the archive to w.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return 0, fmt.Errorf("opening staged archive: %w", err)
	}
	defer f.Close()
	return io.Copy(w, f)
}

// Close removes the staged file.
func (a *Archive) Close() error {
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Stage writes a snapshot of every table and asset to a temporary zip
// file. The caller must Close the returned Archive.
func (e *Exporter) Stage(ctx context.Context) (*Archive, error) {
	tmp, err := os.CreateTemp("", "stu-backup-*.zip")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	archive := &Archive{Name: ArchiveName(e.now().Format(archiveStampLayout)), path: tmp.Name()}

	size, err := e.write(ctx, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing staging file: %w", closeErr)
	}
	if err != nil {
		archive.Close()
		return nil, err
	}
	archive.Size = size

	e.log.WithFields(logrus.Fields{"name": archive.Name, "bytes": size}).Info("snapshot staged")
	return archive, nil
}

func (e *Exporter) write(ctx context.Context, f *os.File) (int64, error) {
	zw := zip.NewWriter(f)

	for _, entry := range []struct{ name, table string }{
		{CategoriesEntry, types.TableCategories},
		{ProjectsEntry, types.TableProjects},
	} {
		rows, err := e.rows.DumpRows(ctx, entry.table)
		if err != nil {
			return 0, fmt.Errorf("dumping %s: %w", entry.table, err)
		}
		data, err := encodeRows(rows)
		if err != nil {
			return 0, fmt.Errorf("encoding %s: %w", entry.table, err)
		}
		if err := addEntry(zw, entry.name, bytes.NewReader(data)); err != nil {
			return 0, err
		}
		e.log.WithFields(logrus.Fields{"table": entry.table, "rows": len(rows)}).Debug("table exported")
	}

	names, err := e.assets.List()
	if err != nil {
		return 0, fmt.Errorf("listing assets: %w", err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := addFile(zw, FaviconsDir+name, e.assets.Path(name)); err != nil {
			return 0, err
		}
	}
	e.log.WithField("files", len(names)).Debug("assets exported")

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat staging file: %w", err)
	}
	return info.Size(), nil
}

// encodeRows renders rows as an indented JSON array with HTML characters
// left unescaped.
func encodeRows(rows []types.Row) ([]byte, error) {
	if rows == nil {
		rows = []types.Row{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func addEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return addEntry(zw, name, f)
}
