// Tests for category CRUD on the SQLite backend.
package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stu/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAndGetCategory(t *testing.T) {
	names := []string{"ab", "Dev tools", "Ünïcödé kategorie", strings.Repeat("x", 100)}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := openTestBackend(t)

			id, err := b.CreateCategory(ctx, &types.Category{Name: name, SortOrder: 2})
			require.NoError(t, err)

			got, err := b.GetCategory(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, name, got.Name)
			assert.Equal(t, 2, got.SortOrder)
			assert.Empty(t, got.Favicon)
		})
	}
}

func TestGetCategoryNotFound(t *testing.T) {
	b := openTestBackend(t)

	_, err := b.GetCategory(context.Background(), 4242)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListCategoriesOrder(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	_, err := b.CreateCategory(ctx, &types.Category{Name: "last", SortOrder: 9})
	require.NoError(t, err)
	_, err = b.CreateCategory(ctx, &types.Category{Name: "first", SortOrder: -1})
	require.NoError(t, err)

	cats, err := b.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "first", cats[0].Name)
	assert.Equal(t, types.DefaultCategoryName, cats[1].Name)
	assert.Equal(t, "last", cats[2].Name)
}

func TestUpdateCategory(t *testing.T) {
	tests := []struct {
		name  string
		patch types.CategoryPatch
		want  types.Category
	}{
		{
			name:  "name only keeps favicon",
			patch: types.CategoryPatch{Name: ptr("Renamed")},
			want:  types.Category{Name: "Renamed", Favicon: "a.png", SortOrder: 1},
		},
		{
			name:  "new favicon replaces old",
			patch: types.CategoryPatch{Name: ptr("Docs"), Favicon: ptr("b.png")},
			want:  types.Category{Name: "Docs", Favicon: "b.png", SortOrder: 1},
		},
		{
			name:  "sort order only",
			patch: types.CategoryPatch{SortOrder: ptr(7)},
			want:  types.Category{Name: "Docs", Favicon: "a.png", SortOrder: 7},
		},
		{
			name:  "empty patch changes nothing",
			patch: types.CategoryPatch{},
			want:  types.Category{Name: "Docs", Favicon: "a.png", SortOrder: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := openTestBackend(t)

			id, err := b.CreateCategory(ctx, &types.Category{Name: "Docs", Favicon: "a.png", SortOrder: 1})
			require.NoError(t, err)

			require.NoError(t, b.UpdateCategory(ctx, id, tt.patch))

			got, err := b.GetCategory(ctx, id)
			require.NoError(t, err)
			tt.want.ID = id
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestUpdateCategoryNotFound(t *testing.T) {
	b := openTestBackend(t)

	err := b.UpdateCategory(context.Background(), 999, types.CategoryPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	catID, err := b.CreateCategory(ctx, &types.Category{Name: "Referenced"})
	require.NoError(t, err)
	projID, err := b.CreateProject(ctx, &types.Project{Name: "p", Link: "https://p.test", CategoryID: catID})
	require.NoError(t, err)

	err = b.DeleteCategory(ctx, catID)
	assert.ErrorIs(t, err, types.ErrReferentialConflict)

	_, err = b.GetCategory(ctx, catID)
	require.NoError(t, err, "category must survive a refused delete")

	require.NoError(t, b.DeleteProject(ctx, projID))
	require.NoError(t, b.DeleteCategory(ctx, catID))

	_, err = b.GetCategory(ctx, catID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, b.DeleteCategory(ctx, catID), types.ErrNotFound)
}

func TestCategoryExists(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	id, err := b.CreateCategory(ctx, &types.Category{Name: "Here"})
	require.NoError(t, err)

	ok, err := b.CategoryExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.CategoryExists(ctx, id+100)
	require.NoError(t, err)
	assert.False(t, ok)
}
