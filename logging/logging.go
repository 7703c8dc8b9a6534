// Package logging provides an explicit logging sink, threaded through
// server.Context rather than used as a global. The default sink writes
// through the standard library logger with a bracketed-subsystem-tag
// convention ("[Election]", "[Log Replication]", ...).
package logging

import "log"

// Sink is the logging interface every component depends on. Passing a nil
// Sink to server.New installs Default().
type Sink interface {
	Printf(format string, args ...any)
}

type stdSink struct{}

func (stdSink) Printf(format string, args ...any) { log.Printf(format, args...) }

// Default returns the standard-library-backed sink.
func Default() Sink { return stdSink{} }

// Discard is a Sink that drops everything, useful in tests.
type discard struct{}

func (discard) Printf(string, ...any) {}

func Discard() Sink { return discard{} }

// Tagged wraps a Sink, prefixing every line with a bracketed subsystem tag,
// e.g. Tagged{Sink: sink, Tag: "Election"}.Printf("node %d starts", 3) logs
// "[Election] node 3 starts".
type Tagged struct {
	Sink Sink
	Tag  string
}

func (t Tagged) Printf(format string, args ...any) {
	t.Sink.Printf("["+t.Tag+"] "+format, args...)
}
