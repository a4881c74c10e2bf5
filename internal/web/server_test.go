package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/JonMunkholm/feedback-sentiment/internal/audit"
	"github.com/JonMunkholm/feedback-sentiment/internal/config"
	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testScorer = sentiment.ScorerFunc(func(text string) float64 {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "love"):
		return 0.7
	case strings.Contains(t, "hate"):
		return -0.7
	}
	return 0
})

type memStore struct {
	records []audit.Record
}

func (s *memStore) Record(_ context.Context, rec audit.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) Recent(_ context.Context, limit int) ([]audit.Record, error) {
	if limit > 0 && limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *memStore) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Rate:   config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, UploadLimit: 20},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCSP:      true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store audit.Store) *Server {
	t.Helper()
	analyzer := core.NewAnalyzer(
		sentiment.NewClassifier(testScorer),
		core.NewAnalysisLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		store,
		core.Options{MaxBytes: cfg.Upload.MaxFileSize},
	)
	s := NewServer(analyzer, cfg)
	t.Cleanup(s.Close)
	return s
}

// uploadRequest builds a multipart POST. An empty fileName omits the file.
func uploadRequest(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if len(body) != 1 {
		t.Errorf("error body = %v, want only an error key", body)
	}
	return body["error"]
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Server is running!"}` {
		t.Errorf("body = %s", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not set")
	}
}

func TestHandleUpload(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	data := "id,comments\n1,I love it\n2,\n3,I hate it\n4,It arrived\n"

	rec := serve(s, uploadRequest(t, "/upload", "survey.csv", data, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Analysis-ID") == "" {
		t.Error("missing X-Analysis-ID header")
	}

	want := `{"feedback":[` +
		`{"id":"1","comments":"I love it","Sentiment":"Positive"},` +
		`{"id":"3","comments":"I hate it","Sentiment":"Negative"},` +
		`{"id":"4","comments":"It arrived","Sentiment":"Neutral"}],` +
		`"stats":{"Positive":1,"Negative":1,"Neutral":1}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestHandleUpload_FormOptions(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	data := "name|notes\nann|love the app\n"

	rec := serve(s, uploadRequest(t, "/upload", "a.txt", data, map[string]string{
		"delimiter": "pipe",
		"column":    "notes",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"notes":"love the app","Sentiment":"Positive"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHandleUpload_LabelFilter(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	data := "id,comments\n1,I love it\n2,I hate it\n3,love again\n4,It arrived\n"

	rec := serve(s, uploadRequest(t, "/upload?label=positive", "survey.csv", data, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	want := `{"feedback":[` +
		`{"id":"1","comments":"I love it","Sentiment":"Positive"},` +
		`{"id":"3","comments":"love again","Sentiment":"Positive"}],` +
		`"stats":{"Positive":2,"Negative":1,"Neutral":1}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}

	exp := serve(s, uploadRequest(t, "/api/export?label=Negative", "survey.csv", data, nil))
	if exp.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", exp.Code, exp.Body)
	}
	if got, want := exp.Body.String(), "id,comments,Sentiment\n2,I hate it,Negative\n"; got != want {
		t.Errorf("export body = %q, want %q", got, want)
	}

	bad := serve(s, uploadRequest(t, "/upload?label=mixed", "survey.csv", data, nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("unknown label status = %d, want 400", bad.Code)
	}
	if got := decodeError(t, bad); !strings.Contains(got, `unknown sentiment label "mixed"`) {
		t.Errorf("error = %q", got)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
		req.Header.Set("Origin", "https://survey.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := serve(s, req)
		if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
			t.Fatalf("preflight status = %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
			t.Errorf("Access-Control-Allow-Methods = %q, want POST", got)
		}
	})

	t.Run("upload from another origin", func(t *testing.T) {
		req := uploadRequest(t, "/upload", "a.csv", "comments\nlove\n", nil)
		req.Header.Set("Origin", "https://survey.example.com")

		rec := serve(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(strings.ToLower(got), "x-analysis-id") {
			t.Errorf("Access-Control-Expose-Headers = %q, want X-Analysis-ID", got)
		}
	})
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("comments\nhi\n"))
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name: "no file field",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "", "", map[string]string{"column": "x"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name: "no text column",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "n.csv", "a,b\n1,2\n3,4\n", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No text column found in CSV",
		},
		{
			name: "requested column missing",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "n.csv", "comments\nhi\n", map[string]string{"column": "notes"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  `Column "notes" not found in CSV`,
		},
		{
			name: "invalid delimiter",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "n.csv", "comments\nhi\n", map[string]string{"delimiter": "::"})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  `invalid delimiter "::"`,
		},
		{
			name: "malformed rows",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "n.csv", "id,comments\n1,hi,extra\n", nil)
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "invalid csv: line 2",
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/upload", "n.csv", "", nil)
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "file is empty",
		},
	}

	s := newTestServer(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req(t))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if got := decodeError(t, rec); !strings.Contains(got, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", got, tt.wantError)
			}
		})
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := newTestServer(t, cfg, nil)

	rec := serve(s, uploadRequest(t, "/upload", "big.csv", "comments\n"+strings.Repeat("x", 64)+"\n", nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rec.Code, rec.Body)
	}
	if got := decodeError(t, rec); !strings.Contains(got, "file too large") {
		t.Errorf("error = %q", got)
	}
}

func TestHandleUpload_BusyReturns503(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 10 * time.Millisecond
	s := newTestServer(t, cfg, nil)

	release, err := s.analyzer.Limiter().Acquire(context.Background())
	if err != nil {
		t.Fatalf("could not take the only slot: %v", err)
	}
	defer release()

	rec := serve(s, uploadRequest(t, "/upload", "a.csv", "comments\nhi\n", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleUpload_IndependentRequests(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	bad := serve(s, uploadRequest(t, "/upload", "bad.csv", "a,b\n1,2\n", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", bad.Code)
	}
	good := serve(s, uploadRequest(t, "/upload", "good.csv", "comments\nlove\n", nil))
	if good.Code != http.StatusOK {
		t.Fatalf("status after failed request = %d, want 200", good.Code)
	}
}

func TestHandleExport(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	data := "id;comments\n1;love it\n2;hate it\n"

	rec := serve(s, uploadRequest(t, "/api/export", "reports/q3.csv", data, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="q3_sentiment.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	want := "id;comments;Sentiment\n1;love it;Positive\n2;hate it;Negative\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body =\n%q\nwant\n%q", got, want)
	}
}

func TestExportName(t *testing.T) {
	tests := map[string]string{
		"feedback.csv":           "feedback_sentiment.csv",
		`C:\Users\me\survey.tsv`: "survey_sentiment.csv",
		"noext":                  "noext_sentiment.csv",
		"":                       "feedback_sentiment.csv",
	}
	for in, want := range tests {
		if got := exportName(in); got != want {
			t.Errorf("exportName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := statusResponse{Analyses: core.LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}}
	if got != want {
		t.Errorf("status = %+v, want %+v", got, want)
	}
}

func TestHandleAnalyses(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, testConfig(), nil)
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("lists records", func(t *testing.T) {
		store := &memStore{}
		s := newTestServer(t, testConfig(), store)

		req := uploadRequest(t, "/upload", "a.csv", "comments\nlove\nhate\n", nil)
		req.Header.Set("User-Agent", "survey-bot/1.0")
		if rec := serve(s, req); rec.Code != http.StatusOK {
			t.Fatalf("upload status = %d", rec.Code)
		}

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=5", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			Analyses []audit.Record `json:"analyses"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Analyses) != 1 {
			t.Fatalf("got %d records, want 1", len(body.Analyses))
		}
		r := body.Analyses[0]
		if r.FileName != "a.csv" || r.Rows != 2 || r.Positive != 1 || r.Negative != 1 {
			t.Errorf("record = %+v", r)
		}
		if r.UserAgent != "survey-bot/1.0" {
			t.Errorf("UserAgent = %q", r.UserAgent)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		s := newTestServer(t, testConfig(), &memStore{})
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=-1", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUI(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	t.Run("index", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/ui", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `action="/ui/analyze"`) {
			t.Error("upload form missing")
		}
	})

	t.Run("results", func(t *testing.T) {
		rec := serve(s, uploadRequest(t, "/ui/analyze", "a.csv", "comments\n<b>love</b>\n", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `<tr data-label="Positive">`) {
			t.Error("result row missing")
		}
		if strings.Contains(body, "<b>love</b>") {
			t.Error("cell content not escaped")
		}
	})

	t.Run("error", func(t *testing.T) {
		rec := serve(s, uploadRequest(t, "/ui/analyze", "a.csv", "a,b\n1,2\n", map[string]string{"column": "notes"}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{"Code: COL001", "available columns: a, b", `value="notes"`} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.UploadLimit = 1
	s := newTestServer(t, cfg, nil)

	first := serve(s, uploadRequest(t, "/upload", "a.csv", "comments\nhi\n", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := serve(s, uploadRequest(t, "/upload", "a.csv", "comments\nhi\n", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60 for a one minute window", got)
	}
	if got := decodeError(t, second); got != "rate limit exceeded" {
		t.Errorf("error = %q", got)
	}

	// Other routes only count against the general limit.
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil)); rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", rec.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request in window should be rejected")
	}
	if !rl.allow("b") {
		t.Error("limits are per client")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("new window should reset the limit")
	}

	now = now.Add(3 * time.Minute)
	rl.prune()
	if n := len(rl.visitors); n != 0 {
		t.Errorf("prune left %d visitors", n)
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{time.Minute, "60"},
		{90 * time.Second, "90"},
		{1500 * time.Millisecond, "2"},
		{100 * time.Millisecond, "1"},
	}
	for _, tt := range tests {
		rl := &rateLimiter{window: tt.window}
		if got := rl.retryAfter(); got != tt.want {
			t.Errorf("retryAfter(%v) = %q, want %q", tt.window, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.MissingFileError{}, http.StatusBadRequest},
		{&core.NoTextColumnError{}, http.StatusBadRequest},
		{badRequest("invalid limit", nil), http.StatusBadRequest},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyAnalyses, http.StatusServiceUnavailable},
		{&sentiment.ClassificationError{Value: "x"}, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessageHidesInternals(t *testing.T) {
	err := errorMessage(context.DeadlineExceeded)
	if strings.Contains(err, "context") {
		t.Errorf("message leaks internal error: %q", err)
	}
}
