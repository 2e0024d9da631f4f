package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

func formatSavings(before, after int64) string {
	if before <= 0 || after <= 0 || after >= before {
		return "-"
	}
	saved := before - after
	return fmt.Sprintf("%s (%.1f%%)", humanize.IBytes(uint64(saved)), float64(saved)/float64(before)*100)
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	if max <= 3 {
		return path[len(path)-max:]
	}
	return "..." + path[len(path)-(max-3):]
}
