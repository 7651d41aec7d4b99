package main

import (
	"log"
	"os"
)

// Exit codes follow the convention of SAT solvers: 10 when a timetable is found, 20 when none is.
const (
	exitFound    = 10
	exitNotFound = 20
)

func main() {
	app := newApp(os.Stdout)
	if err := newRootCmd(app).Execute(); err != nil {
		log.Fatalf("cctt: %v", err)
	}
	os.Exit(app.exitCode)
}
