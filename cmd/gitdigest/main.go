// Package main provides the gitdigest CLI, a one-shot front end to the same
// pipeline the server runs.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
