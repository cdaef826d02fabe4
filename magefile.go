//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles every executable of the module
func Build() error {
	mg.Deps(BuildSimulate)
	mg.Deps(BuildResolution)
	fmt.Println("Compilation finished")
	return nil
}

func BuildSimulate() error {
	fmt.Println("Building simulate executable...")
	return goBuild("./bin/simulate", "./simulate")
}

func BuildResolution() error {
	fmt.Println("Building resolution executable...")
	return goBuild("./bin/resolution", "./resolution")
}

// Test runs the unit tests of every package
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output string, pkg string) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
