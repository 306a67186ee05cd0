//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "actimeta"
	binaryDir  = "bin"
	cmdDir     = "./cmd/actimeta"
	modulePath = "github.com/mesh-intelligence/actimeta"
)

// Build compiles the actimeta binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-trimpath", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Tidy runs go mod tidy and verifies the module path.
func Tidy() error {
	out, err := sh.Output(binGo, "list", "-m")
	if err != nil {
		return err
	}
	if out != modulePath {
		return mg.Fatalf(1, "unexpected module path %q", out)
	}
	return sh.RunV(binGo, "mod", "tidy")
}
