// Package command encodes turtle primitives into backend wire lines.
//
// Every command is a single line of printable ASCII: a fixed verb followed
// by space-separated arguments. The trailing newline is framing and is added
// by the transport, never stored in the Command itself.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wire verbs understood by the drawing backend.
const (
	VerbForward    = "FORWARD"
	VerbBack       = "BACK"
	VerbRight      = "RIGHT"
	VerbLeft       = "LEFT"
	VerbPos        = "POS"
	VerbPosX       = "POSX"
	VerbPosY       = "POSY"
	VerbHeading    = "HEADING"
	VerbPenUp      = "PENUP"
	VerbPenDown    = "PENDOWN"
	VerbHide       = "HIDE"
	VerbShow       = "SHOW"
	VerbColor      = "COLOR"
	VerbColorName  = "COLORNAME"
	VerbDelay      = "DELAY"
	VerbCenter     = "CENTER"
	VerbSpeed      = "SPEED"
	VerbTurnSpeed  = "TURNSPEED"
	VerbQuit       = "QUIT"
	VerbGetHeading = "GETHEADING"
	VerbRandInt    = "RANDINT"
	VerbPowInt     = "POWINT"
)

// Validation errors.
var (
	ErrEmpty        = errors.New("command is empty")
	ErrMultiline    = errors.New("command must not contain line breaks")
	ErrNotPrintable = errors.New("command must be printable ASCII")
	ErrBadPath      = errors.New("channel path must not contain quotes or line breaks")
	ErrBadColorName = errors.New("color name must be a single ASCII word")
)

// Command is one immutable wire line without its newline terminator.
type Command struct {
	line string
}

// String returns the wire line.
func (c Command) String() string {
	return c.line
}

// Verb returns the first word of the line.
func (c Command) Verb() string {
	verb, _, _ := strings.Cut(c.line, " ")
	return verb
}

// IsZero reports whether c was never built.
func (c Command) IsZero() bool {
	return c.line == ""
}

func verb(v string, args ...int) Command {
	if len(args) == 0 {
		return Command{line: v}
	}
	var b strings.Builder
	b.WriteString(v)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(a))
	}
	return Command{line: b.String()}
}

// Forward moves the turtle d units along its heading.
func Forward(d int) Command { return verb(VerbForward, d) }

// Back moves the turtle d units against its heading.
func Back(d int) Command { return verb(VerbBack, d) }

// Right turns clockwise by deg degrees.
func Right(deg int) Command { return verb(VerbRight, deg) }

// Left turns counter-clockwise by deg degrees.
func Left(deg int) Command { return verb(VerbLeft, deg) }

// Position jumps to the absolute coordinate (x, y).
func Position(x, y int) Command { return verb(VerbPos, x, y) }

// PosX sets only the x coordinate.
func PosX(x int) Command { return verb(VerbPosX, x) }

// PosY sets only the y coordinate.
func PosY(y int) Command { return verb(VerbPosY, y) }

// SetHeading sets the absolute heading in degrees.
func SetHeading(h int) Command { return verb(VerbHeading, h) }

// PenUp stops drawing while moving.
func PenUp() Command { return verb(VerbPenUp) }

// PenDown draws while moving.
func PenDown() Command { return verb(VerbPenDown) }

// Hide hides the turtle.
func Hide() Command { return verb(VerbHide) }

// Show shows the turtle.
func Show() Command { return verb(VerbShow) }

// Center returns the turtle to the canvas center.
func Center() Command { return verb(VerbCenter) }

// Quit asks the backend to close its window and exit.
func Quit() Command { return verb(VerbQuit) }

// Color selects a palette index.
func Color(c int) Command { return verb(VerbColor, c) }

// Delay asks the backend to pause its animation queue for ms milliseconds.
func Delay(ms int) Command { return verb(VerbDelay, ms) }

// Speed sets the movement animation speed in pixels per second.
func Speed(px int) Command { return verb(VerbSpeed, px) }

// TurnSpeed sets the rotation animation speed in degrees per second.
func TurnSpeed(deg int) Command { return verb(VerbTurnSpeed, deg) }

// ColorName selects a named pen color. The name must be a single word of
// ASCII letters since it travels unquoted.
func ColorName(name string) (Command, error) {
	if name == "" {
		return Command{}, ErrBadColorName
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return Command{}, fmt.Errorf("%w: %q", ErrBadColorName, name)
		}
	}
	return Command{line: VerbColorName + " " + name}, nil
}

// GetHeading asks the backend to write its heading into path.
func GetHeading(path string) (Command, error) {
	return Query(VerbGetHeading, path)
}

// RandInt asks the backend to write a random integer bounded by maxv into path.
func RandInt(maxv int, path string) (Command, error) {
	return Query(VerbRandInt, path, maxv)
}

// PowInt asks the backend to write a raised to b into path.
func PowInt(a, b int, path string) (Command, error) {
	return Query(VerbPowInt, path, a, b)
}

// Query builds `<VERB> <args...> "<path>"`. The path may hold non-ASCII
// characters (temp dirs under localized home directories) but no quotes or
// control characters.
func Query(v, path string, args ...int) (Command, error) {
	if path == "" {
		return Command{}, ErrBadPath
	}
	for _, r := range path {
		if r == '"' || r < 0x20 || r == 0x7f {
			return Command{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}
	base := verb(v, args...)
	return Command{line: base.line + ` "` + path + `"`}, nil
}

// Raw validates a free-form line, as typed on the command line or read
// back from the journal. Surrounding whitespace is trimmed.
func Raw(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if err := checkLine(line); err != nil {
		return Command{}, err
	}
	return Command{line: line}, nil
}

func checkLine(line string) error {
	if line == "" {
		return ErrEmpty
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\n' || c == '\r':
			return ErrMultiline
		case c < 0x20 || c > 0x7e:
			return ErrNotPrintable
		}
	}
	return nil
}
