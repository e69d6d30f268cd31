package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chat"
	"multimodal-rag/internal/ingest"
	"multimodal-rag/internal/tabular"
)

// Server holds the handler dependencies.
type Server struct {
	ingest *ingest.Service
	tab    *tabular.Store
	chat   *chat.Router
}

func NewServer(ing *ingest.Service, tab *tabular.Store, chatRouter *chat.Router) *Server {
	return &Server{ingest: ing, tab: tab, chat: chatRouter}
}

type uploadResponse struct {
	Status string `json:"status"`
	*ingest.Result
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Chatbot API running"})
}

// uploadFunc is one modality's ingestion pipeline.
type uploadFunc func(ctx context.Context, file []byte, filename string) (*ingest.Result, error)

// handleUpload reads the multipart file and delegates to the pipeline.
func (s *Server) handleUpload(name string, fn uploadFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, filename, ok := readUpload(w, r)
		if !ok {
			return
		}

		result, err := fn(r.Context(), file, filename)
		if err != nil {
			log.Error().Err(err).Str("upload", name).Str("file", filename).Msg("upload failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, uploadResponse{Status: "success", Result: result})
	}
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.tab.IngestTable(r.Context(), file, filename)
	if err != nil {
		log.Error().Err(err).Str("file", filename).Msg("csv upload failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"table":         result.Table,
		"rows_inserted": result.RowsInserted,
		"columns":       result.Columns,
		"message":       fmt.Sprintf("Uploaded %d rows to table '%s'", result.RowsInserted, result.Table),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Message cannot be empty"})
		return
	}

	writeJSON(w, http.StatusOK, s.chat.Handle(r.Context(), &req))
}

// readUpload extracts the "file" part of a multipart form. On failure it
// writes the error response itself and reports ok=false.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read upload")
		return nil, "", false
	}
	return data, header.Filename, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
