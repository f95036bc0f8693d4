//go:build windows

package cmd

// getTermWidthIoctl has no console query on Windows; termWidth falls back
// to $COLUMNS.
func getTermWidthIoctl() int { return 0 }
