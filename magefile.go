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

// Build compiles every executable into ./bin
func Build() error {
	mg.Deps(BuildEmtf, BuildMakePtLUT)
	fmt.Println("Compilation finished")
	return nil
}

// goCommand runs the go tool with the cgo flags of the environment, needed
// by the HDF5 bindings.
func goCommand(args ...string) *exec.Cmd {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func BuildEmtf() error {
	fmt.Println("Building emtf executable...")
	return goCommand("build", "-o", "./bin/emtf", "./emtf").Run()
}

func BuildMakePtLUT() error {
	fmt.Println("Building makeptlut executable...")
	return goCommand("build", "-o", "./bin/makeptlut", "./makeptlut").Run()
}

// Test runs the unit tests of the track finder library
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "-race", "./pkg/...").Run()
}

// Vet checks the whole module
func Vet() error {
	return goCommand("vet", "./...").Run()
}
