// Package telegram defines the messaging-platform transport surface the
// pipeline drives and the platform error types the retry policy classifies.
// The concrete bot binding is injected by the host process.
package telegram
