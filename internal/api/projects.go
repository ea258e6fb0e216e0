package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/pkg/types"
)

const msgProjectNotFound = "Project not found!"

// listing is the body of GET /projects.
type listing struct {
	Alert      *Flash           `json:"alert"`
	Categories []types.Category `json:"categories"`
	Projects   []types.Project  `json:"projects"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Catalog.ListCategories(r.Context())
	if err != nil {
		s.log.WithError(err).Error("listing categories")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	projects, err := s.deps.Catalog.ListProjects(r.Context())
	if err != nil {
		s.log.WithError(err).Error("listing projects")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	writeJSON(w, http.StatusOK, listing{
		Alert:      popFlash(w, r),
		Categories: categories,
		Projects:   projects,
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgProjectNotFound)
		return
	}
	p, err := s.deps.Catalog.GetProject(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgProjectNotFound)
		return
	}
	if err != nil {
		s.log.WithError(err).Error("getting project")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func projectInput(r *http.Request) catalog.ProjectInput {
	categoryID, _ := strconv.ParseInt(formValue(r, "category_id"), 10, 64)
	return catalog.ProjectInput{
		Name:        formValue(r, "name"),
		Link:        formValue(r, "link"),
		Description: formValue(r, "description"),
		CategoryID:  categoryID,
		SortOrder:   formInt(r, "sort_order"),
		Favicon:     formUpload(r, "favicon"),
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.fail(w, r, &types.UploadError{Reason: types.ErrUploadFailed, Err: err}, msgProjectNotFound)
		return
	}
	if _, err := s.deps.Catalog.CreateProject(r.Context(), projectInput(r)); err != nil {
		s.fail(w, r, err, msgProjectNotFound)
		return
	}
	redirect(w, r, FlashSuccess, "Project added successfully!")
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, FlashDanger, msgProjectNotFound)
		return
	}
	if err := parseForm(r); err != nil {
		s.fail(w, r, &types.UploadError{Reason: types.ErrUploadFailed, Err: err}, msgProjectNotFound)
		return
	}
	if _, err := s.deps.Catalog.UpdateProject(r.Context(), id, projectInput(r)); err != nil {
		s.fail(w, r, err, msgProjectNotFound)
		return
	}
	redirect(w, r, FlashSuccess, "Project updated successfully!")
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, FlashDanger, msgProjectNotFound)
		return
	}
	if err := s.deps.Catalog.DeleteProject(r.Context(), id); err != nil {
		s.fail(w, r, err, msgProjectNotFound)
		return
	}
	redirect(w, r, FlashWarning, "Project deleted successfully!")
}
