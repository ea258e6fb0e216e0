package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/stu/pkg/types"
)

const (
	listingPath   = "/projects"
	maxFormMemory = 32 << 20
)

const msgUnexpected = "An unexpected error occurred."

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// redirect finishes a mutation with a flash and a 303 to the listing.
func redirect(w http.ResponseWriter, r *http.Request, typ, message string) {
	setFlash(w, typ, message)
	http.Redirect(w, r, listingPath, http.StatusSeeOther)
}

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// parseForm accepts multipart and urlencoded bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// formInt reads an integer field. It returns nil when the field is absent
// or not a number, so updates keep the stored value.
func formInt(r *http.Request, key string) *int {
	n, err := strconv.Atoi(formValue(r, key))
	if err != nil {
		return nil
	}
	return &n
}

// formUpload reads the file in field. It returns nil when the client did
// not send one.
func formUpload(r *http.Request, field string) *types.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return &types.Upload{Err: err}
	}
	defer f.Close()

	if hdr.Filename == "" && hdr.Size == 0 {
		return nil
	}
	data, err := io.ReadAll(f)
	return &types.Upload{Filename: hdr.Filename, Data: data, Err: err}
}

// formFile opens the file in field for random access.
func formFile(r *http.Request, field string) (multipart.File, int64, error) {
	if r.MultipartForm == nil {
		return nil, 0, http.ErrMissingFile
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, 0, err
	}
	return f, hdr.Size, nil
}

// failureMessage maps a service error to the flash text shown to the user.
// ok is false for errors the user cannot act on.
func failureMessage(err error, notFound string) (string, bool) {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message, true
	case errors.Is(err, types.ErrUploadFailed):
		return "Error uploading favicon.", true
	case errors.Is(err, types.ErrUploadType):
		return "Invalid favicon file type.", true
	case errors.Is(err, types.ErrUploadSave):
		return "Failed to save favicon file.", true
	case errors.Is(err, types.ErrReferentialConflict):
		return "Cannot delete this category: it is assigned to one or more projects.", true
	case errors.Is(err, types.ErrNotFound):
		return notFound, true
	}
	return msgUnexpected, false
}

// fail redirects with a danger flash describing err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	msg, known := failureMessage(err, notFound)
	log := s.log.WithField("path", r.URL.Path).WithError(err)
	if known {
		log.Info("request rejected")
	} else {
		log.Error("request failed")
	}
	redirect(w, r, FlashDanger, msg)
}
