package constants

import "time"

// DefaultMaxResponseBytes is the Lambda synchronous invocation response payload limit (6 MB).
const DefaultMaxResponseBytes = 6 * 1024 * 1024

// DefaultAsyncTimeout is how long the container waits for an asynchronous handler to complete.
const DefaultAsyncTimeout = 30 * time.Second

// DefaultAsyncInitTimeout bounds the synchronous part of an asynchronous framework boot.
// Lambda allows 10 seconds for the init phase, the rest is left for the runtime itself.
const DefaultAsyncInitTimeout = 9 * time.Second

// DefaultInvalidPathStatus is returned for request paths rejected by the path validator.
const DefaultInvalidPathStatus = 404

// DefaultErrorStatus is returned by the exception mapper for hosted framework failures.
const DefaultErrorStatus = 500

// LambdaInitTimeout bounds the framework boot performed by the Lambda entry points.
const LambdaInitTimeout = 10 * time.Second
