package connect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/shlex"

	"github.com/runger/turtlert/internal/config"
)

// Strategy names one way of reaching a backend.
type Strategy string

// Strategies in the order Connect tries them.
const (
	StrategyTCP       Strategy = "tcp"
	StrategyExeScript Strategy = "exe-script"
	StrategyOverride  Strategy = "override"
	StrategyFallback  Strategy = "fallback"
)

// Order lists every strategy in attempt order.
var Order = []Strategy{StrategyTCP, StrategyExeScript, StrategyOverride, StrategyFallback}

// unbufferedFlag makes the Python backend flush its own output per line.
const unbufferedFlag = "-u"

// Directive is the resolved input for each strategy. Empty fields disable
// the strategy that needs them.
type Directive struct {
	TCPAddr string

	Exe    string
	Script string

	Command string

	// FallbackInterpreter is the launcher command line, split into argv.
	FallbackInterpreter []string
	// FallbackScript is the absolute backend script path next to our binary.
	FallbackScript string
}

// Attempt is one planned strategy with the arguments it will use, or the
// reason it will be skipped.
type Attempt struct {
	Strategy Strategy
	Addr     string
	Argv     []string
	Skip     string
}

// Resolve builds a Directive from backend settings, re-reading the backend
// environment variables through getenv so values set after config loading
// still apply.
func Resolve(b config.BackendConfig, getenv func(string) string) Directive {
	if getenv == nil {
		getenv = os.Getenv
	}
	pick := func(env, fallback string) string {
		if v := getenv(env); v != "" {
			return v
		}
		return fallback
	}

	d := Directive{
		TCPAddr: pick(config.EnvTCPAddr, b.TCPAddr),
		Exe:     pick(config.EnvPyExe, b.Exe),
		Script:  pick(config.EnvPyScript, b.Script),
		Command: pick(config.EnvPyCmd, b.Command),
	}

	d.FallbackInterpreter = defaultInterpreter()
	if b.FallbackInterpreter != "" {
		if argv, err := shlex.Split(b.FallbackInterpreter); err == nil && len(argv) > 0 {
			d.FallbackInterpreter = argv
		}
	}

	name := b.FallbackScript
	if name == "" {
		name = config.DefaultFallbackScript
	}
	if filepath.IsAbs(name) {
		d.FallbackScript = name
	} else if dir, err := executableDir(); err == nil {
		d.FallbackScript = filepath.Join(dir, name)
	}

	return d
}

// Plan expands the directive into the ordered attempts Connect will make.
func (d Directive) Plan() []Attempt {
	plan := make([]Attempt, 0, len(Order))

	tcp := Attempt{Strategy: StrategyTCP, Addr: d.TCPAddr}
	if d.TCPAddr == "" {
		tcp.Skip = config.EnvTCPAddr + " not set"
	}
	plan = append(plan, tcp)

	exe := Attempt{Strategy: StrategyExeScript}
	if d.Exe != "" && d.Script != "" {
		exe.Argv = []string{d.Exe, unbufferedFlag, d.Script}
	} else {
		exe.Skip = config.EnvPyExe + " and " + config.EnvPyScript + " not both set"
	}
	plan = append(plan, exe)

	override := Attempt{Strategy: StrategyOverride}
	if d.Command == "" {
		override.Skip = config.EnvPyCmd + " not set"
	} else if argv, err := splitCommand(d.Command); err != nil {
		override.Skip = err.Error()
	} else {
		override.Argv = argv
	}
	plan = append(plan, override)

	fallback := Attempt{Strategy: StrategyFallback}
	if d.FallbackScript == "" || len(d.FallbackInterpreter) == 0 {
		fallback.Skip = "executable directory unknown"
	} else {
		argv := append([]string(nil), d.FallbackInterpreter...)
		fallback.Argv = append(argv, d.FallbackScript)
	}
	plan = append(plan, fallback)

	return plan
}

// splitCommand splits an override command line with POSIX word rules; no
// shell is involved.
func splitCommand(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.EnvPyCmd, err)
	}
	if len(argv) == 0 {
		return nil, errors.New(config.EnvPyCmd + " is blank")
	}
	return argv, nil
}

var executablePath = os.Executable

// executableDir returns the directory holding the running binary.
func executableDir() (string, error) {
	exe, err := executablePath()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Dir(exe), nil
}
