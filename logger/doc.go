// Package logger provides structured logging for cmdflow using zerolog.
//
// Console output goes to stderr by default so stdout stays free for command
// output and the worker protocol.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("dag")
//	log.Info("run finished", logger.Fields("dag", "release"))
package logger
