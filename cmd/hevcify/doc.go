// Command hevcify batch-converts a media library to H.265 MP4 using
// hardware-accelerated ffmpeg encoders. See `hevcify --help`.
package main
