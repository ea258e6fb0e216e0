package api

import (
	"errors"
	"net/http"

	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/pkg/types"
)

const msgCategoryNotFound = "Category not found!"

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Catalog.ListCategories(r.Context())
	if err != nil {
		s.log.WithError(err).Error("listing categories")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
		return
	}
	c, err := s.deps.Catalog.GetCategory(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
		return
	}
	if err != nil {
		s.log.WithError(err).Error("getting category")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func categoryInput(r *http.Request) catalog.CategoryInput {
	return catalog.CategoryInput{
		Name:      formValue(r, "cat_name"),
		SortOrder: formInt(r, "sort_order"),
		Favicon:   formUpload(r, "cat_favicon"),
	}
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.fail(w, r, &types.UploadError{Reason: types.ErrUploadFailed, Err: err}, msgCategoryNotFound)
		return
	}
	if _, err := s.deps.Catalog.CreateCategory(r.Context(), categoryInput(r)); err != nil {
		s.fail(w, r, err, msgCategoryNotFound)
		return
	}
	redirect(w, r, FlashSuccess, "Category added successfully!")
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, FlashDanger, msgCategoryNotFound)
		return
	}
	if err := parseForm(r); err != nil {
		s.fail(w, r, &types.UploadError{Reason: types.ErrUploadFailed, Err: err}, msgCategoryNotFound)
		return
	}
	if _, err := s.deps.Catalog.UpdateCategory(r.Context(), id, categoryInput(r)); err != nil {
		s.fail(w, r, err, msgCategoryNotFound)
		return
	}
	redirect(w, r, FlashSuccess, "Category updated successfully!")
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, FlashDanger, msgCategoryNotFound)
		return
	}
	if err := s.deps.Catalog.DeleteCategory(r.Context(), id); err != nil {
		s.fail(w, r, err, msgCategoryNotFound)
		return
	}
	redirect(w, r, FlashWarning, "Category deleted successfully!")
}
