// Package constants defines global constants used throughout lambdahost.
// It includes version information, environment names and configuration keys.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of lambdahost.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool and library
const ProjectName = "lambdahost"

// EnvPrefix is the prefix of every environment variable read by the config loader.
const EnvPrefix = "LAMBDAHOST"

// ConfigFileName is the optional configuration file looked up in the working directory
const ConfigFileName = "lambdahost.yaml"

// DotEnvFileName is the dotenv file loaded by the CLI before reading configuration.
const DotEnvFileName = ".env"

// Environment represents the execution environment (e.g., CLI, Lambda).
type Environment string

// Environment types for logger configuration.
const (
	Development Environment = "development"
	Production  Environment = "production"
	CLI         Environment = "cli"
)

// RequestIDLogField is the field name used for request ID in log entries
const RequestIDLogField = "requestID"

// DevServerPort is the default port of the local gateway started by "lambdahost serve"
const DevServerPort = "3000"
