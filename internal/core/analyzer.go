package core

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/feedback-sentiment/internal/audit"
	"github.com/JonMunkholm/feedback-sentiment/internal/logging"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

// DefaultWorkers is the number of goroutines classifying one file.
const DefaultWorkers = 4

// auditTimeout bounds the audit write after an analysis completes.
const auditTimeout = 5 * time.Second

// Options tunes an Analyzer. Zero values select defaults.
type Options struct {
	Workers     int      // classification goroutines per analysis
	MaxBytes    int64    // upload size limit, 0 = unlimited
	SampleLines int      // lines sampled for delimiter inference
	SampleRows  int      // rows sampled for text column detection
	Preferred   []string // preferred text column names
}

// Request is one file to analyse.
type Request struct {
	FileName        string
	Data            io.Reader
	Delimiter       rune   // 0 = infer
	Column          string // explicit text column, empty = detect
	RequiredColumns []string
}

// Analyzer runs the load, select, classify and aggregate pipeline. It is
// safe for concurrent use; requests share only the classifier.
type Analyzer struct {
	classifier *sentiment.Classifier
	limiter    *AnalysisLimiter
	store      audit.Store
	opts       Options
}

// NewAnalyzer wires the pipeline. A nil limiter disables concurrency limits
// and a nil store disables the audit log.
func NewAnalyzer(classifier *sentiment.Classifier, limiter *AnalysisLimiter, store audit.Store, opts Options) *Analyzer {
	if store == nil {
		store = audit.NopStore{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Analyzer{
		classifier: classifier,
		limiter:    limiter,
		store:      store,
		opts:       opts,
	}
}

// Limiter returns the analysis limiter, nil when unlimited.
func (a *Analyzer) Limiter() *AnalysisLimiter {
	return a.limiter
}

// Store returns the audit store.
func (a *Analyzer) Store() audit.Store {
	return a.store
}

// Analyze classifies every row of req.Data that has a non-empty text cell.
// Either all rows are labelled or an error is returned.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.Data == nil {
		return nil, &MissingFileError{Field: "file"}
	}

	start := time.Now()
	id := uuid.NewString()
	log := logging.WithFields(ctx, "analysis_id", id, "file", req.FileName)

	if a.limiter != nil {
		release, err := a.limiter.Acquire(ctx)
		if err != nil {
			log.Warn("analysis rejected", "error", err, "waiting", a.limiter.Waiting())
			return nil, err
		}
		defer release()
	}

	ds, err := tabular.Load(req.Data, tabular.Options{
		Delimiter:       req.Delimiter,
		RequiredColumns: req.RequiredColumns,
		SampleLines:     a.opts.SampleLines,
		MaxBytes:        a.opts.MaxBytes,
	})
	if err != nil {
		return nil, err
	}

	column, err := SelectTextColumn(ds, SelectOptions{
		Column:     req.Column,
		Preferred:  a.opts.Preferred,
		SampleRows: a.opts.SampleRows,
	})
	if err != nil {
		return nil, err
	}
	col, _ := ds.ColumnIndex(column)
	log = log.With("column", column)

	rows := make([]tabular.Row, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		if r.Value(col) != "" {
			rows = append(rows, r)
		}
	}

	labels, err := a.classifyAll(ctx, rows, col)
	if err != nil {
		log.Warn("classification failed", "error", err)
		return nil, err
	}

	feedback := make([]AnnotatedRow, len(rows))
	for i, r := range rows {
		feedback[i] = AnnotatedRow{Row: r, Sentiment: labels[i]}
	}

	res := &Result{
		ID:         id,
		FileName:   req.FileName,
		TextColumn: column,
		Delimiter:  ds.Delimiter,
		Header:     ds.Header,
		Feedback:   feedback,
		Stats:      Aggregate(feedback),
		Dropped:    len(ds.Rows) - len(rows),
		Duration:   time.Since(start),
	}

	log.Info("analysis completed",
		"delimiter", DelimiterName(res.Delimiter),
		"rows", len(res.Feedback),
		"dropped", res.Dropped,
		"positive", res.Stats.Positive,
		"negative", res.Stats.Negative,
		"neutral", res.Stats.Neutral,
		"duration_ms", res.Duration.Milliseconds(),
	)

	a.record(ctx, res)
	return res, nil
}

// classifyAll labels rows[i] into labels[i]. Rows are split into contiguous
// chunks, one per worker; the first error cancels the rest.
func (a *Analyzer) classifyAll(ctx context.Context, rows []tabular.Row, col int) ([]sentiment.Label, error) {
	labels := make([]sentiment.Label, len(rows))
	if len(rows) == 0 {
		return labels, nil
	}

	workers := a.opts.Workers
	if workers > len(rows) {
		workers = len(rows)
	}
	chunk := (len(rows) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(rows); lo += chunk {
		hi := min(lo+chunk, len(rows))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				label, err := a.classifier.Classify(rows[i].Value(col))
				if err != nil {
					return err
				}
				labels[i] = label
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A parent cancellation that landed after the last row still fails the
	// request.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// record writes the audit summary. Failures are logged only.
func (a *Analyzer) record(ctx context.Context, res *Result) {
	if !audit.Enabled(a.store) {
		return
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	err := a.store.Record(actx, audit.Record{
		ID:         res.ID,
		FileName:   res.FileName,
		TextColumn: res.TextColumn,
		Delimiter:  DelimiterName(res.Delimiter),
		Rows:       len(res.Feedback),
		Dropped:    res.Dropped,
		Positive:   res.Stats.Positive,
		Negative:   res.Stats.Negative,
		Neutral:    res.Stats.Neutral,
		DurationMS: res.Duration.Milliseconds(),
		IPAddress:  IPAddressFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("audit record failed", "analysis_id", res.ID, "error", err)
	}
}
