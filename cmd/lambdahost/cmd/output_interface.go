package cmd

import (
	"time"

	"github.com/runvoy/lambdahost/internal/output"
	"github.com/runvoy/lambdahost/pkg/api"
)

// OutputInterface defines the interface for output operations to enable dependency injection and testing.
type OutputInterface interface {
	Info(format string, a ...any)
	Success(format string, a ...any)
	Warning(format string, a ...any)
	KeyValue(key, value string)
	Blank()
	Println(a ...any)
	Response(resp *api.ResponseEvent, elapsed time.Duration)
}

// outputWrapper wraps the global output package functions to implement OutputInterface.
type outputWrapper struct{}

// NewOutputWrapper creates a new output wrapper that implements OutputInterface.
func NewOutputWrapper() OutputInterface {
	return &outputWrapper{}
}

func (o *outputWrapper) Info(format string, a ...any) {
	output.Info(format, a...)
}

func (o *outputWrapper) Success(format string, a ...any) {
	output.Success(format, a...)
}

func (o *outputWrapper) Warning(format string, a ...any) {
	output.Warning(format, a...)
}

func (o *outputWrapper) KeyValue(key, value string) {
	output.KeyValue(key, value)
}

func (o *outputWrapper) Blank() {
	output.Blank()
}

func (o *outputWrapper) Println(a ...any) {
	output.Println(a...)
}

func (o *outputWrapper) Response(resp *api.ResponseEvent, elapsed time.Duration) {
	output.Response(resp, elapsed)
}
