// Package core runs the feedback analysis pipeline, independent of any
// transport. Web handlers and the CLI both drive it through [Analyzer].
//
// # Pipeline
//
// One call to [Analyzer.Analyze] performs:
//
//  1. Acquire a slot from the [AnalysisLimiter]
//  2. Load the upload into a tabular dataset (delimiter inferred when unset)
//  3. Pick the text column with [SelectTextColumn]
//  4. Drop rows whose text cell is empty
//  5. Classify every remaining row and keep the input order
//  6. Count labels with [Aggregate]
//  7. Record an audit summary, best effort
//
// Any failure aborts the whole request. There are no partial results.
//
// # Error Handling
//
// Errors surfaced to clients are typed ([MissingFileError],
// [NoTextColumnError], tabular.FormatError, sentiment.ClassificationError)
// and [MapError] turns any of them into a user message with a support code:
//
//   - FILE001-FILE006: Upload and format errors (size, encoding, delimiter)
//   - COL001-COL003: Text column selection errors
//   - SENT001: Classification errors
//   - UPL002-UPL005: Capacity, cancellation and timeouts
//   - RATE001: Rate limiting
package core
