// Package logger provides structured logging for httpsmgr using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("https")
//	log.Info("transaction completed", logger.Fields("outcome", 200))
package logger
