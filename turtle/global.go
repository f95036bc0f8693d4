package turtle

import "sync"

var (
	defaultOnce   sync.Once
	defaultTurtle *Turtle
)

// Default returns the process-wide Turtle behind the package functions,
// creating it on first use.
func Default() *Turtle {
	defaultOnce.Do(func() {
		defaultTurtle = New()
	})
	return defaultTurtle
}

// Init connects the process-wide Turtle to a backend.
func Init() { Default().Init() }

// Shutdown sends QUIT and disconnects the process-wide Turtle.
func Shutdown() { Default().Shutdown() }

// Forward moves forward d pixels on the process-wide Turtle.
func Forward(d int) { Default().Forward(d) }

// Back moves backward d pixels on the process-wide Turtle.
func Back(d int) { Default().Back(d) }

// Right turns clockwise by deg degrees on the process-wide Turtle.
func Right(deg int) { Default().Right(deg) }

// Left turns counterclockwise by deg degrees on the process-wide Turtle.
func Left(deg int) { Default().Left(deg) }

// SetPosition moves to (x, y) on the process-wide Turtle.
func SetPosition(x, y int) { Default().SetPosition(x, y) }

// SetXY is SetPosition on the process-wide Turtle.
func SetXY(x, y int) { Default().SetXY(x, y) }

// SetX moves horizontally to x on the process-wide Turtle.
func SetX(x int) { Default().SetX(x) }

// SetY moves vertically to y on the process-wide Turtle.
func SetY(y int) { Default().SetY(y) }

// SetHeading sets the absolute heading in degrees on the process-wide Turtle.
func SetHeading(h int) { Default().SetHeading(h) }

// PenUp stops drawing while moving on the process-wide Turtle.
func PenUp() { Default().PenUp() }

// PenDown draws while moving on the process-wide Turtle.
func PenDown() { Default().PenDown() }

// Hide hides the turtle on the process-wide Turtle.
func Hide() { Default().Hide() }

// Show shows the turtle on the process-wide Turtle.
func Show() { Default().Show() }

// SetColor selects a palette index on the process-wide Turtle.
func SetColor(c int) { Default().SetColor(c) }

// SetColorName sets the pen color by name on the process-wide Turtle.
func SetColorName(n string) { Default().SetColorName(n) }

// Delay asks the backend to pause its animation for ms milliseconds on the process-wide Turtle.
func Delay(ms int) { Default().Delay(ms) }

// SleepMs pauses the caller without contacting the backend on the process-wide Turtle.
func SleepMs(ms int) { Default().SleepMs(ms) }

// Center returns to the canvas center on the process-wide Turtle.
func Center() { Default().Center() }

// Speed sets the movement speed in pixels per second on the process-wide Turtle.
func Speed(px int) { Default().Speed(px) }

// TurnSpeed sets the rotation speed in degrees per second on the process-wide Turtle.
func TurnSpeed(deg int) { Default().TurnSpeed(deg) }

// Heading queries the backend's heading; 0 when unavailable.
func Heading() int { return Default().Heading() }

// RandInt queries a random number bounded by maxv; 0 when unavailable.
func RandInt(maxv int) int { return Default().RandInt(maxv) }

// PowInt queries a raised to e; 0 when unavailable.
func PowInt(a, e int) int { return Default().PowInt(a, e) }
