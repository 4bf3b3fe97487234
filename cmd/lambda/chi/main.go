// Package main implements the Lambda function hosting the demo application on chi.
// One binary serves REST API, HTTP API, ALB and VPC Lattice events.
package main

import (
	"github.com/runvoy/lambdahost/internal/demo"
	"github.com/runvoy/lambdahost/internal/lambdaapi"
)

func main() {
	lambdaapi.Start(demo.Chi())
}
