// Package queue persists conversion work items in SQLite so interrupted
// batch runs resume where they left off.
package queue
