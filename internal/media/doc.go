// Package media wraps ffprobe: stream inspection, track selection, and
// output verification.
package media
