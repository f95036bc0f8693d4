package turtle

import "sync"

func resetDefault() {
	if defaultTurtle != nil {
		defaultTurtle.Close()
	}
	defaultOnce = sync.Once{}
	defaultTurtle = nil
}
