package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/export"
	"github.com/overviewer/sheetscan/internal/extract"
	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/reconcile"
	"github.com/overviewer/sheetscan/internal/sheet"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload ingests one spreadsheet: parse, map headers once, extract
// and validate rows, reconcile against the store, open a fresh session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart upload with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	raw, err := sheet.Read(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not parse spreadsheet")
		return
	}
	if len(raw.Headers) == 0 {
		writeError(w, http.StatusBadRequest, "spreadsheet has no header row")
		return
	}

	mapped, err := s.mapper.MapHeaders(r.Context(), raw.Headers)
	if err != nil {
		zap.L().Error("upload: header mapping failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "header mapping failed")
		return
	}

	identities, rows, err := extract.Rows(raw, mapped)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not extract rows")
		return
	}

	out := s.reconciler.Reconcile(r.Context(), lookupIdentities(identities, rows))
	rows = reconcile.Apply(rows, out)

	state := s.sessions.create(header.Filename, raw.Headers, mapped, rows, out.Warning)
	zap.L().Info("upload: session created",
		zap.String("session", state.ID),
		zap.String("file", state.FileName),
		zap.Int("rows", len(state.Rows)))

	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleProcess runs enrichment over the session's eligible rows. Only one
// run per session may be in flight; a concurrent trigger gets 409.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rows, err := s.sessions.beginProcessing(id)
	switch {
	case eris.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case eris.Is(err, ErrProcessing):
		writeError(w, http.StatusConflict, "processing already in progress")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "could not start processing")
		return
	}

	enriched, report, err := s.enricher.Enrich(r.Context(), rows)
	if err != nil {
		_, _ = s.sessions.finishProcessing(id, nil, nil)
		zap.L().Error("process: enrichment aborted", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment aborted")
		return
	}

	state, err := s.sessions.finishProcessing(id, enriched, &report)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleExport streams the enriched sheet. An empty filtered set is not an
// error; it answers 204.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	cells := export.Project(state.Rows)
	if len(cells) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf, "Enriched", export.Headers, cells); err != nil {
		zap.L().Error("export: write workbook failed", zap.String("session", state.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not build export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="enriched.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lookupIdentities drops identities whose rows are permanently errored;
// those rows never match and never enrich.
func lookupIdentities(identities []model.CompanyIdentity, rows []model.TableRow) []model.CompanyIdentity {
	out := make([]model.CompanyIdentity, 0, len(identities))
	for i, id := range identities {
		if rows[i].HasError {
			continue
		}
		out = append(out, id)
	}
	return out
}
