// Package output formats review run results for display or machine
// consumption.
//
// Two formats are supported:
//   - text: human-readable terminal output (default)
//   - json: full structured result
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then
// call [Writer.Write] with an [io.Writer] and a [*pipeline.Result].
// [WriteResult] is a convenience helper that handles destination
// selection (file path or stdout).
package output
