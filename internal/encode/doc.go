// Package encode builds FFmpeg argument lists for H.265/MP4 conversion and
// runs them with progress reporting.
//
// The command builder is a pure function over (selected tracks, encoder
// settings); the runner owns process lifecycle, progress scraping, and
// stderr capture.
package encode
