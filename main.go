package main

import (
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/cmd"
)

// init configures the initial logging level for Berth.
//
// It sets logrus to InfoLevel by default, ensuring basic operational logs
// are visible unless overridden by --log-level in cmd.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// main serves as the entry point for the Berth application.
//
// It delegates execution to the cmd package, which handles CLI setup,
// flag parsing, and lifecycle operation dispatch.
func main() {
	cmd.Execute()
}
