//go:build windows

package connect

// defaultInterpreter uses the py launcher, which picks the newest installed
// Python on Windows.
func defaultInterpreter() []string {
	return []string{"py", unbufferedFlag}
}
