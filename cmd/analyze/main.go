// Command analyze classifies the feedback in a local CSV file with the same
// pipeline the server uses.
//
// Usage:
//
//	analyze survey.csv
//	analyze --column notes --output csv survey.csv > annotated.csv
//	cat survey.csv | analyze --delimiter semicolon --output yaml -
//	analyze --label negative --output csv survey.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/feedback-sentiment/internal/config"
	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/logging"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

// newScorer builds the scorer; tests swap it for a deterministic one.
var newScorer = func(stripMarkdown bool) sentiment.Scorer {
	return sentiment.NewVaderScorer(stripMarkdown)
}

type analyzeFlags struct {
	delimiter string
	column    string
	require   []string
	label     string
	output    string
	logLevel  string
}

func main() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports err on the command line. Errors with a known support
// code get the mapped message and suggested action under the raw error.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, "      ", core.FormatUserError(err))
	}
}

func newRootCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Label each feedback row of a CSV file as Positive, Negative or Neutral",
		Long: `Reads a delimited text file, picks the free-text column (a column named
"comments" or "comment", otherwise the first mostly non-numeric column),
classifies every non-empty row and prints the labelled rows with their
counts. Reads standard input when the file is "-" or omitted.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, f)
		},
	}

	cmd.Flags().StringVarP(&f.delimiter, "delimiter", "d", "", "field delimiter: comma, semicolon, tab, pipe or a single character (default: detect)")
	cmd.Flags().StringVarP(&f.column, "column", "c", "", "text column to classify (default: detect)")
	cmd.Flags().StringSliceVar(&f.require, "require", nil, "columns that must be present")
	cmd.Flags().StringVarP(&f.label, "label", "l", "", "only print rows with this label: positive, negative or neutral")
	cmd.Flags().StringVarP(&f.output, "output", "o", "json", "output format: json, yaml, csv or summary")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, f analyzeFlags) error {
	write, err := writerFor(f.output)
	if err != nil {
		return err
	}
	delim, err := tabular.ParseDelimiter(f.delimiter)
	if err != nil {
		return err
	}
	var label sentiment.Label
	if f.label != "" {
		if label, err = sentiment.ParseLabel(f.label); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), f.logLevel, "pretty"))

	in, name, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	analyzer := core.NewAnalyzer(
		sentiment.NewClassifier(newScorer(cfg.Analysis.StripMarkdown)),
		nil,
		nil,
		core.Options{
			Workers:     cfg.Analysis.Workers,
			MaxBytes:    cfg.Upload.MaxFileSize,
			SampleLines: cfg.Analysis.SampleLines,
			SampleRows:  cfg.Analysis.SampleRows,
			Preferred:   cfg.Analysis.PreferredColumns,
		},
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := analyzer.Analyze(ctx, core.Request{
		FileName:        name,
		Data:            in,
		Delimiter:       delim,
		Column:          f.column,
		RequiredColumns: f.require,
	})
	if err != nil {
		return err
	}
	if label != "" {
		res = res.Only(label)
	}

	return write(cmd.OutOrStdout(), res)
}

// openInput returns the file named by args, or stdin for "-" or no argument.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	file, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	return file, filepath.Base(args[0]), nil
}

type resultWriter func(io.Writer, *core.Result) error

func writerFor(format string) (resultWriter, error) {
	switch format {
	case "json":
		return writeJSON, nil
	case "yaml":
		return writeYAML, nil
	case "csv":
		return core.WriteCSV, nil
	case "summary":
		return writeSummary, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want json, yaml, csv or summary)", format)
}

func writeJSON(w io.Writer, res *core.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeYAML(w io.Writer, res *core.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}

func writeSummary(w io.Writer, res *core.Result) error {
	total := res.Stats.Total()
	if _, err := fmt.Fprintf(w, "file:    %s\ncolumn:  %s (%s separated)\nrows:    %d classified, %d without text\n",
		res.FileName, res.TextColumn, core.DelimiterName(res.Delimiter), total, res.Dropped); err != nil {
		return err
	}
	for _, l := range sentiment.Labels() {
		n := res.Stats.Count(l)
		pct := 0.0
		if total > 0 {
			pct = float64(n) * 100 / float64(total)
		}
		if _, err := fmt.Fprintf(w, "%-9s%6d %6.1f%%\n", l, n, pct); err != nil {
			return err
		}
	}
	return nil
}
