// Package main is the single-binary entrypoint for aether: the daemon and
// its control CLI.
package main

import "github.com/aether-desk/aether/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
