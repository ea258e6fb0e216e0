package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stu/internal/backup"
	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/pkg/types"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	dir       string
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("STU_CONFIG_DIR", "")
	t.Setenv("STU_DATA_DIR", "")
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		dir:       dir,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

// run executes stu with the environment's directories.
func (e *testEnv) run(args ...string) (stdout, stderr string, code int) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code = Run(context.Background(), full, &out, &errOut)
	return out.String(), errOut.String(), code
}

// mustRun executes stu and fails the test unless it exits 0.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, code := e.run(args...)
	require.Equal(e.t, exitSuccess, code, "stu %v: stdout=%s stderr=%s", args, stdout, stderr)
	return stdout
}

func (e *testEnv) init() {
	e.t.Helper()
	e.mustRun("init")
}

// writeFile writes data under the environment's temp dir and returns the path.
func (e *testEnv) writeFile(name string, data []byte) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, data, 0o644))
	return path
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := Run(context.Background(), []string{"version"}, &out, &bytes.Buffer{})
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out.String(), "stu v"+Version)
	assert.Contains(t, out.String(), modulePath)
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("init")
	assert.Contains(t, out, "stu initialized successfully")

	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(env.dataDir, "projects.db"))
	assert.DirExists(t, filepath.Join(env.dataDir, "public", "favicon"))

	t.Run("second init keeps config", func(t *testing.T) {
		cfgPath := filepath.Join(env.configDir, "config.yaml")
		custom := []byte("listen_addr: \":9999\"\n")
		require.NoError(t, os.WriteFile(cfgPath, custom, 0o644))

		env.mustRun("init")
		got, err := os.ReadFile(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, custom, got)
	})

	t.Run("default category exists", func(t *testing.T) {
		categories := decode[[]types.Category](t, env.mustRun("--json", "category", "list"))
		require.Len(t, categories, 1)
		assert.Equal(t, types.DefaultCategoryName, categories[0].Name)
	})
}

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	work := decode[types.Category](t, env.mustRun("--json", "category", "add", "Work", "--sort-order", "2"))
	assert.Equal(t, "Work", work.Name)
	assert.Equal(t, 2, work.SortOrder)

	out := env.mustRun("category", "list")
	assert.Contains(t, out, "Work")
	assert.Contains(t, out, types.DefaultCategoryName)
	assert.Contains(t, out, "Total: 2 category(ies)")

	id := strconv.FormatInt(work.ID, 10)
	icon := env.writeFile("work.png", pngData)
	updated := decode[types.Category](t, env.mustRun("--json", "category", "update", id, "--name", "Tools", "--favicon", icon))
	assert.Equal(t, "Tools", updated.Name)
	assert.Equal(t, 2, updated.SortOrder, "unchanged flags keep stored values")
	assert.True(t, strings.HasPrefix(updated.Favicon, "/favicon/"))
	assert.FileExists(t, filepath.Join(env.dataDir, "public", "favicon", strings.TrimPrefix(updated.Favicon, "/favicon/")))

	renamed := decode[types.Category](t, env.mustRun("--json", "category", "update", id, "--sort-order", "0"))
	assert.Equal(t, "Tools", renamed.Name)
	assert.Equal(t, updated.Favicon, renamed.Favicon, "update without upload keeps favicon")

	assert.Contains(t, env.mustRun("category", "delete", id), "Category deleted successfully!")
	_, _, code := env.run("category", "delete", id)
	assert.Equal(t, exitUserError, code)
}

func TestCategoryRejections(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	_, stderr, code := env.run("category", "add", "x")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, catalog.MsgCategoryName)

	notImage := env.writeFile("notes.txt", []byte("plain text"))
	_, _, code = env.run("category", "add", "Docs", "--favicon", notImage)
	assert.Equal(t, exitUserError, code)

	_, _, code = env.run("category", "add", "Docs", "--favicon", filepath.Join(env.dir, "missing.png"))
	assert.Equal(t, exitUserError, code)

	_, _, code = env.run("category", "update", "99", "--name", "Ghost")
	assert.Equal(t, exitUserError, code)
}

func TestCategoryDeleteInUse(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	icon := env.writeFile("p.png", pngData)
	env.mustRun("project", "add", "--name", "stu", "--link", "https://example.test", "--category", "1", "--favicon", icon)

	_, stderr, code := env.run("category", "delete", "1")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, types.ErrReferentialConflict.Error())
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	icon := env.writeFile("p.png", pngData)
	p := decode[types.Project](t, env.mustRun("--json", "project", "add",
		"--name", "My Project",
		"--link", "https://example.test/app",
		"--description", "dashboard",
		"--category", "1",
		"--sort-order", "3",
		"--favicon", icon,
	))
	assert.Equal(t, "My Project", p.Name)
	assert.Equal(t, int64(1), p.CategoryID)
	assert.Equal(t, 3, p.SortOrder)
	require.True(t, strings.HasPrefix(p.Favicon, "/favicon/"))

	id := strconv.FormatInt(p.ID, 10)
	updated := decode[types.Project](t, env.mustRun("--json", "project", "update", id, "--description", "wiki"))
	assert.Equal(t, "wiki", updated.Description)
	assert.Equal(t, p.Name, updated.Name)
	assert.Equal(t, p.Link, updated.Link)
	assert.Equal(t, p.Favicon, updated.Favicon)

	other := decode[types.Category](t, env.mustRun("--json", "category", "add", "Other"))
	moved := decode[types.Project](t, env.mustRun("--json", "project", "update", id, "--category", strconv.FormatInt(other.ID, 10)))
	assert.Equal(t, other.ID, moved.CategoryID)

	assert.Len(t, decode[[]types.Project](t, env.mustRun("--json", "project", "list", "--category", "1")), 0)
	assert.Len(t, decode[[]types.Project](t, env.mustRun("--json", "project", "list")), 1)

	out := env.mustRun("project", "list")
	assert.Contains(t, out, "My Project")
	assert.Contains(t, out, "Total: 1 project(s)")

	assert.Contains(t, env.mustRun("project", "delete", id), "Project deleted successfully!")
	assert.Contains(t, env.mustRun("project", "list"), "No projects found.")

	_, _, code := env.run("project", "delete", id)
	assert.Equal(t, exitUserError, code)
}

func TestProjectRejections(t *testing.T) {
	env := newTestEnv(t)
	env.init()
	icon := env.writeFile("p.png", pngData)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad name", []string{"--name", "bad/name", "--link", "https://a.test", "--category", "1"}, catalog.MsgProjectName},
		{"bad link", []string{"--name", "good", "--link", "ftp://a.test", "--category", "1"}, catalog.MsgProjectLink},
		{"unknown category", []string{"--name", "good", "--link", "https://a.test", "--category", "42"}, catalog.MsgCategory},
		{"long description", []string{"--name", "good", "--link", "https://a.test", "--category", "1", "--description", strings.Repeat("x", 501)}, catalog.MsgDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"project", "add", "--favicon", icon}, tt.args...)
			_, stderr, code := env.run(args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, stderr, tt.want)
		})
	}

	t.Run("missing required flag", func(t *testing.T) {
		_, _, code := env.run("project", "add", "--name", "good")
		assert.Equal(t, exitUserError, code)
	})

	assert.Contains(t, env.mustRun("project", "list"), "No projects found.")
}

func TestProjectAddWithoutReachableIcon(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	p := decode[types.Project](t, env.mustRun("--json", "project", "add",
		"--name", "offline", "--link", "http://127.0.0.1:1/", "--category", "1"))
	assert.Empty(t, p.Favicon)
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	icon := env.writeFile("p.png", pngData)
	p := decode[types.Project](t, env.mustRun("--json", "project", "add",
		"--name", "kept", "--link", "https://kept.test", "--category", "1", "--favicon", icon))

	archive := filepath.Join(env.dir, "backup.zip")
	out := env.mustRun("export", "-o", archive)
	assert.Contains(t, out, "Wrote "+archive)
	assert.FileExists(t, archive)

	env.mustRun("category", "add", "Added Later")

	assert.Contains(t, env.mustRun("import", archive), "Restoration completed successfully!")

	categories := decode[[]types.Category](t, env.mustRun("--json", "category", "list"))
	assert.Len(t, categories, 1)
	projects := decode[[]types.Project](t, env.mustRun("--json", "project", "list"))
	require.Len(t, projects, 1)
	assert.Equal(t, p, projects[0])
	assert.FileExists(t, filepath.Join(env.dataDir, "public", "favicon", strings.TrimPrefix(p.Favicon, "/favicon/")))

	rotated, err := filepath.Glob(filepath.Join(env.dataDir, "projects-*.db"))
	require.NoError(t, err)
	assert.Len(t, rotated, 1, "previous database is kept aside")
}

func TestImportRejections(t *testing.T) {
	env := newTestEnv(t)
	env.init()

	_, _, code := env.run("import", filepath.Join(env.dir, "missing.zip"))
	assert.Equal(t, exitUserError, code)

	bogus := env.writeFile("bogus.zip", []byte("not a zip"))
	_, stderr, code := env.run("import", bogus)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, string(backup.StageOpenArchive))

	_, _, code = env.run("import")
	assert.Equal(t, exitUserError, code)
}

func TestUsageErrors(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"nope"},
		{"category", "delete", "abc"},
		{"project", "update", "0"},
		{"--bogus-flag", "version"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, stderr, code := env.run(args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", types.NewValidationError("name", "bad"), exitUserError},
		{"upload", &types.UploadError{Reason: types.ErrUploadType}, exitUserError},
		{"not found", fmt.Errorf("get: %w", types.ErrNotFound), exitUserError},
		{"in use", types.ErrReferentialConflict, exitUserError},
		{"bad archive", &backup.RestoreError{Stage: backup.StageOpenArchive, Err: types.ErrInvalidArchive}, exitUserError},
		{"missing manifest", &backup.RestoreError{Stage: backup.StageValidateManifest, Err: types.ErrMissingManifest}, exitUserError},
		{"store not empty", &backup.RestoreError{Stage: backup.StageClearTables, Partial: true, Err: types.ErrStoreNotEmpty}, exitSysError},
		{"other", errors.New("disk on fire"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
