// Tests for project CRUD on the SQLite backend.
package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stu/pkg/types"
)

func createTestCategory(t *testing.T, b *Backend, name string) int64 {
	t.Helper()
	id, err := b.CreateCategory(context.Background(), &types.Category{Name: name})
	require.NoError(t, err)
	return id
}

func TestCreateAndGetProject(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	catID := createTestCategory(t, b, "Tools")

	in := &types.Project{
		Name:        "Grafana",
		Link:        "https://grafana.test",
		Description: "dashboards",
		Favicon:     "/favicon/abc.png",
		CategoryID:  catID,
		SortOrder:   3,
	}
	id, err := b.CreateProject(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, id, in.ID)

	got, err := b.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *in, *got)
}

func TestCreateProjectInvalidCategory(t *testing.T) {
	b := openTestBackend(t)

	_, err := b.CreateProject(context.Background(), &types.Project{Name: "x", Link: "https://x.test", CategoryID: 777})
	assert.ErrorIs(t, err, types.ErrInvalidCategory)
}

func TestListProjectsOrder(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	catID := createTestCategory(t, b, "Tools")

	for _, p := range []types.Project{
		{Name: "c", Link: "https://c.test", CategoryID: catID, SortOrder: 2},
		{Name: "a", Link: "https://a.test", CategoryID: catID, SortOrder: 0},
		{Name: "b", Link: "https://b.test", CategoryID: catID, SortOrder: 0},
	} {
		_, err := b.CreateProject(ctx, &p)
		require.NoError(t, err)
	}

	projects, err := b.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{projects[0].Name, projects[1].Name, projects[2].Name})
}

func TestUpdateProjectCoalesce(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	catID := createTestCategory(t, b, "Tools")
	otherID := createTestCategory(t, b, "Other")

	id, err := b.CreateProject(ctx, &types.Project{
		Name: "Old", Link: "https://old.test", Favicon: "/favicon/keep.ico", CategoryID: catID,
	})
	require.NoError(t, err)

	err = b.UpdateProject(ctx, id, types.ProjectPatch{
		Name:       ptr("New"),
		Link:       ptr("https://new.test"),
		CategoryID: ptr(otherID),
	})
	require.NoError(t, err)

	got, err := b.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "https://new.test", got.Link)
	assert.Equal(t, "/favicon/keep.ico", got.Favicon)
	assert.Equal(t, otherID, got.CategoryID)
	assert.Equal(t, 0, got.SortOrder)
}

func TestUpdateProjectInvalidCategory(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	catID := createTestCategory(t, b, "Tools")

	id, err := b.CreateProject(ctx, &types.Project{Name: "p", Link: "https://p.test", CategoryID: catID})
	require.NoError(t, err)

	err = b.UpdateProject(ctx, id, types.ProjectPatch{CategoryID: ptr(int64(555))})
	assert.ErrorIs(t, err, types.ErrInvalidCategory)
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	catID := createTestCategory(t, b, "Tools")

	id, err := b.CreateProject(ctx, &types.Project{Name: "p", Link: "https://p.test", CategoryID: catID})
	require.NoError(t, err)

	require.NoError(t, b.DeleteProject(ctx, id))
	_, err = b.GetProject(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, b.DeleteProject(ctx, id), types.ErrNotFound)
}
