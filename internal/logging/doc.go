// Package logging wraps log/slog with the handlers and attribute helpers the
// rest of the daemon uses: a terse console handler for interactive runs, a
// JSON handler otherwise, and context-derived fields (uin, batch id).
package logging
