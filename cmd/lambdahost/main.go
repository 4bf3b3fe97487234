// Package main implements the lambdahost CLI.
// It builds sample gateway events, replays them against the bundled demo application
// and invokes deployed functions.
package main

import "github.com/runvoy/lambdahost/cmd/lambdahost/cmd"

func main() {
	cmd.Execute()
}
