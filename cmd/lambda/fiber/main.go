// Package main implements the Lambda function hosting the demo application on fiber.
// Fiber handlers cannot complete responses asynchronously.
package main

import (
	"github.com/runvoy/lambdahost/internal/demo"
	"github.com/runvoy/lambdahost/internal/lambdaapi"
)

func main() {
	lambdaapi.Start(demo.Fiber())
}
