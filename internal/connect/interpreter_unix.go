//go:build !windows

package connect

// defaultInterpreter is the launcher for the fallback backend script.
func defaultInterpreter() []string {
	return []string{"python3", unbufferedFlag}
}
