// Package utils exposes reusable helpers consumed by the CLI and the audit pipeline.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging, plus CommandContextAccessor for
// values carried on command contexts.
package utils
