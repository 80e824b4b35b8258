// Package store persists feeds, delivered message ids, login cookies, and
// the block list in SQLite. All writes go through the single database handle;
// multi-statement updates run in transactions.
package store
