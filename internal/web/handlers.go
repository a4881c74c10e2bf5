package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/feedback-sentiment/internal/audit"
	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

const (
	// formOverhead is the body allowance on top of the file for multipart
	// boundaries and the other form fields.
	formOverhead = 1 << 20

	// maxMemory is how much of a multipart body is kept in memory before
	// spilling to temporary files.
	maxMemory = 10 << 20
)

// handleRoot is the liveness check.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is running!"})
}

// parseUpload reads the multipart upload into an analysis request. The
// returned cleanup removes any temporary files and must always be called.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (core.Request, func(), error) {
	cleanup := func() {}

	if s.cfg.Upload.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+formOverhead)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			return core.Request{}, cleanup, err
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return core.Request{}, cleanup, &core.MissingFileError{Field: "file"}
		}
		return core.Request{}, cleanup, badRequest("invalid multipart form", err)
	}
	cleanup = func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	delim, err := tabular.ParseDelimiter(strings.TrimSpace(r.FormValue("delimiter")))
	if err != nil {
		return core.Request{}, cleanup, badRequest(err.Error(), err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return core.Request{}, cleanup, &core.MissingFileError{Field: "file"}
		}
		return core.Request{}, cleanup, fmt.Errorf("open upload: %w", err)
	}

	closeFile := cleanup
	cleanup = func() {
		file.Close()
		closeFile()
	}

	return core.Request{
		FileName:        header.Filename,
		Data:            file,
		Delimiter:       delim,
		Column:          strings.TrimSpace(r.FormValue("column")),
		RequiredColumns: splitList(r.FormValue("require")),
	}, cleanup, nil
}

// labelFilter reads the optional label query parameter. An empty label
// means every row is returned.
func labelFilter(r *http.Request) (sentiment.Label, error) {
	v := r.URL.Query().Get("label")
	if v == "" {
		return "", nil
	}
	l, err := sentiment.ParseLabel(v)
	if err != nil {
		return "", badRequest(err.Error(), err)
	}
	return l, nil
}

// analyze parses the upload and runs the pipeline with the request metadata
// the audit log needs. The label filter only narrows the rows returned; the
// audit record and stats cover the whole file.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*core.Result, error) {
	label, err := labelFilter(r)
	if err != nil {
		return nil, err
	}

	req, cleanup, err := s.parseUpload(w, r)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if label != "" {
		res = res.Only(label)
	}
	return res, nil
}

// handleUpload classifies an uploaded file and returns the annotated rows
// with their label counts.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyze(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("X-Analysis-ID", res.ID)
	writeJSON(w, http.StatusOK, res)
}

// handleExport classifies an uploaded file and streams it back as CSV with
// the Sentiment column added.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyze(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(res.FileName)))
	w.Header().Set("X-Analysis-ID", res.ID)
	w.Header().Set("Cache-Control", "no-cache")

	// Headers are sent once the first row is written; later failures can
	// only be logged.
	if err := core.WriteCSV(w, res); err != nil {
		logRequestError(r, err, http.StatusInternalServerError)
	}
}

// exportName derives the download name from the uploaded file name.
func exportName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "feedback"
	}
	return base + "_sentiment.csv"
}

type statusResponse struct {
	Analyses core.LimiterStatus `json:"analyses"`
	Audit    bool               `json:"audit"`
}

// handleStatus reports analysis capacity and whether the audit log is on.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Audit: audit.Enabled(s.analyzer.Store())}
	if l := s.analyzer.Limiter(); l != nil {
		resp.Analyses = l.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAnalyses lists the most recent audit records.
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	store := s.analyzer.Store()
	if !audit.Enabled(store) {
		writeError(w, http.StatusNotFound, audit.ErrDisabled.Error())
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	records, err := store.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
}

// splitList splits a comma-separated form value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
