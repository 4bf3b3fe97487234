// Package main implements the Lambda function hosting the demo application on gin.
package main

import (
	"github.com/runvoy/lambdahost/internal/demo"
	"github.com/runvoy/lambdahost/internal/lambdaapi"
)

func main() {
	lambdaapi.Start(demo.Gin())
}
