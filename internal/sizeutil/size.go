// Package sizeutil formats byte counts for the interface. The output
// contract is base-1024 with one decimal ("1.5 KB"), which neither the
// SI nor IEC formatters in go-humanize produce.
package sizeutil

import "fmt"

const (
	kb = 1 << 10
	mb = kb << 10
	gb = mb << 10
	tb = gb << 10
)

func FormatSize(bytes int64) string {
	switch {
	case bytes >= tb:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(tb))
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSizeShort is for tight columns: no space, fewer decimals.
func FormatSizeShort(bytes int64) string {
	switch {
	case bytes >= tb:
		return fmt.Sprintf("%.0fT", float64(bytes)/float64(tb))
	case bytes >= gb:
		return fmt.Sprintf("%.1fG", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.0fM", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.0fK", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
