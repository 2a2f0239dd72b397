//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the bpa command into bin/.
func (Build) Bpa() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/bpa", "./cmd/bpa"), withStream())
	return err
}

// Runs go vet over every package.
func Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs the test suite.
func Test() error {
	mg.Deps(Vet)
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Meshes every scene script under examples/ into bin/examples/.
func Examples() error {
	mg.Deps(Build.Bpa)
	return meshExamples("examples", "bin/examples")
}
