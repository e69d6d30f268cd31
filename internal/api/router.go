package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the HTTP surface. Routes match the frontend's
// expectations, one upload endpoint per modality plus the chat endpoint.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleHealth)

	r.Post("/upload_video", s.handleUpload("video", s.ingest.Video))
	r.Post("/upload_audio", s.handleUpload("audio", s.ingest.Audio))
	r.Post("/upload_image", s.handleUpload("image", s.ingest.Image))
	r.Post("/upload_pdf", s.handleUpload("pdf", s.ingest.PDF))
	r.Post("/upload_csv", s.handleUploadCSV)

	r.Post("/chat", s.handleChat)

	return r
}
