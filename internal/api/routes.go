package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, listingPath, http.StatusFound)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)
		r.Get("/{id}", s.getProject)
		r.Post("/{id}", s.updateProject)
		r.Put("/{id}", s.updateProject)
		r.Delete("/{id}", s.deleteProject)
		r.Post("/{id}/delete", s.deleteProject)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", s.listCategories)
		r.Post("/", s.createCategory)
		r.Get("/{id}", s.getCategory)
		r.Post("/{id}", s.updateCategory)
		r.Put("/{id}", s.updateCategory)
		r.Delete("/{id}", s.deleteCategory)
		r.Post("/{id}/delete", s.deleteCategory)
	})

	r.Get("/backup", s.downloadBackup)
	r.Post("/restore", s.restoreBackup)

	if s.deps.Assets != nil {
		prefix := s.deps.Assets.Prefix()
		files := http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(s.deps.Assets.Dir()))))
		r.Get(prefix+"*", files.ServeHTTP)
	}

	return r
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
