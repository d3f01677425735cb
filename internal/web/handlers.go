package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/logging"
	"github.com/JonMunkholm/schemadmin/internal/schema"
	"github.com/JonMunkholm/schemadmin/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// uploadField is the multipart field carrying the schema document.
const uploadField = "models"

var errRequestTooLarge = errors.New("request body too large")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tables := s.service.Tables()
	entries := make([]templates.TableEntry, len(tables))
	for i, t := range tables {
		entries[i] = templates.TableEntry{Title: t.Title, Table: t.Table}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(entries).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleCreateModels applies an uploaded schema document and redirects to
// the listing. Documents that cannot be parsed and requests without a file
// are ignored; only storage failures produce an error response.
func (s *Server) handleCreateModels(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	maxSize := s.cfg.Upload.MaxFileSize
	if r.ContentLength > maxSize {
		s.respondError(w, r, errRequestTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn("schema upload ignored: invalid form", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		logger.Warn("schema upload ignored: no file provided")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	results, err := s.service.UploadSchema(ctx, data)
	switch {
	case errors.Is(err, schema.ErrInvalidDocument):
		logger.Warn("schema upload ignored",
			"file", header.Filename,
			"upload_id", core.UploadIDFromContext(ctx),
			"error", err,
		)
	case err != nil:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	default:
		changed := 0
		for _, res := range results {
			if res.Changed() {
				changed++
			}
		}
		logger.Info("schema uploaded",
			"file", header.Filename,
			"upload_id", core.UploadIDFromContext(ctx),
			"tables", len(results),
			"changed", changed,
		)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleTableContent returns the labels and rows of a registered table.
// A missing or unknown table_name yields the JSON literal 0.
func (s *Server) handleTableContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.service.TableContent(r.Context(), r.URL.Query().Get("table_name"))
	if errors.Is(err, core.ErrNoTable) || errors.Is(err, core.ErrTableNotFound) {
		writeJSON(w, 0)
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, content)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Tables())
}

// handleGetTable returns the field definitions last applied for a table.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	m, ok := s.service.Model(table)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrTableNotFound, table), http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}
