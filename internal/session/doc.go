// Package session manages the login lifecycle: the strategy-ordered QR and
// password sub-flows, per-method suppression windows, the persisted cookie
// cache, and the expiry guard that remote calls route through.
package session
