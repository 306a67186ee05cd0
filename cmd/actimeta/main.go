// Package main provides the actimeta CLI.
package main

import "github.com/mesh-intelligence/actimeta/internal/cli"

func main() {
	cli.Execute()
}
