package api

import (
	"net/http"
	"strconv"
)

func (s *Server) downloadBackup(w http.ResponseWriter, r *http.Request) {
	archive, err := s.deps.Exporter.Stage(r.Context())
	if err != nil {
		s.log.WithError(err).Error("staging backup")
		http.Error(w, "Could not create zip archive.", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := archive.Close(); err != nil {
			s.log.WithError(err).Warn("removing staged backup")
		}
	}()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.Name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(archive.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := archive.WriteTo(w); err != nil {
		s.log.WithError(err).Warn("streaming backup")
	}
}

func (s *Server) restoreBackup(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.log.WithError(err).Info("restore upload unreadable")
		redirect(w, r, FlashDanger, "Restore failed: No zip file uploaded or upload error.")
		return
	}
	f, size, err := formFile(r, "restore_zip")
	if err != nil {
		redirect(w, r, FlashDanger, "Restore failed: No zip file uploaded or upload error.")
		return
	}
	defer f.Close()

	if err := s.deps.Restorer.Restore(r.Context(), f, size); err != nil {
		redirect(w, r, FlashDanger, "Restore failed: "+err.Error())
		return
	}
	redirect(w, r, FlashSuccess, "Restoration completed successfully!")
}
