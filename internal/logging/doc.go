// Package logging builds the slog loggers used across Vigil.
//
// Two output formats are supported: a human-oriented console format with
// flattened key=value attributes and optional ANSI colors, and line-delimited
// JSON for ingestion. Construction is driven by the [logging] config section.
package logging
