package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/web/templates"
)

func (s *Server) uploadForm(r *http.Request) templates.UploadForm {
	f := templates.UploadForm{MaxSizeMB: s.cfg.Upload.MaxFileSize >> 20}
	if r.Form != nil || r.MultipartForm != nil {
		f.Delimiter = strings.TrimSpace(r.FormValue("delimiter"))
		f.Column = strings.TrimSpace(r.FormValue("column"))
	}
	return f
}

// handleUIIndex renders the upload page.
func (s *Server) handleUIIndex(w http.ResponseWriter, r *http.Request) {
	s.renderHTML(w, r, http.StatusOK, templates.UploadPage(s.uploadForm(r), nil))
}

// handleUIAnalyze renders the results page for an uploaded file.
func (s *Server) handleUIAnalyze(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyze(w, r)
	if err != nil {
		s.respondErrorHTML(w, r, err, s.uploadForm(r))
		return
	}

	w.Header().Set("X-Analysis-ID", res.ID)
	s.renderHTML(w, r, http.StatusOK, templates.ResultsPage(resultsView(res, s.uploadForm(r))))
}

// resultsView flattens a result for the results page.
func resultsView(res *core.Result, form templates.UploadForm) templates.ResultsView {
	cols, at := res.Columns()
	v := templates.ResultsView{
		AnalysisID: res.ID,
		FileName:   res.FileName,
		TextColumn: res.TextColumn,
		Delimiter:  core.DelimiterName(res.Delimiter),
		Dropped:    res.Dropped,
		Columns:    cols,
		LabelIndex: at,
		Rows:       make([]templates.ResultRow, len(res.Feedback)),
		Form:       form,
	}

	for i, row := range res.Feedback {
		_, vals := row.Record()
		v.Rows[i] = templates.ResultRow{Label: string(row.Sentiment), Cells: vals}
	}

	total := res.Stats.Total()
	for _, l := range sentiment.Labels() {
		lc := templates.LabelCount{Label: string(l), Count: res.Stats.Count(l)}
		if total > 0 {
			lc.Percent = float64(lc.Count) * 100 / float64(total)
		}
		v.Stats = append(v.Stats, lc)
	}
	return v
}

// renderHTML renders c with status. Render failures after the header is
// written are logged only.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
	}
}
