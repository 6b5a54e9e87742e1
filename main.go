package main

import (
	"os"
	"runtime"

	"groove/cmd"
	"groove/internal/log"
)

// main runs the command line. The engine loop, the audio callback and the
// terminal UI each want a thread of their own.
func main() {
	runtime.GOMAXPROCS(max(3, runtime.GOMAXPROCS(0)))

	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
