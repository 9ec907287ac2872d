// Package logger provides structured logging backed by zerolog.
//
// A single global logger is configured once with Init; packages obtain
// component-tagged children with WithComponent and attach
// structured fields as plain maps:
//
//	log := logger.WithComponent("broker")
//	log.Warn("provider call failed", logger.Fields("provider", name, "reason", reason))
package logger
