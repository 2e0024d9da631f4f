// Package workflow drives the conversion pipeline: it ingests scan results
// into the queue and runs the single-worker loop that probes, encodes,
// verifies, and replaces each file.
package workflow
