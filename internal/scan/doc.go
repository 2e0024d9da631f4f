// Package scan walks a media library and decides which files are
// conversion candidates.
package scan
