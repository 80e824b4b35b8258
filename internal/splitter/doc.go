// Package splitter turns enriched feeds into ordered atom sequences sized to
// the platform's message, caption, and media-group budgets.
package splitter
