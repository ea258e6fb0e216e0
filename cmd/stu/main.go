// Package main is the entry point for the stu CLI.
package main

import "github.com/mesh-intelligence/stu/internal/cli"

func main() {
	cli.Execute()
}
