// Package dbg provides a debug logger that compiles to a no-op unless the
// "debug" build tag is supplied, so the CPU/bus hot path pays nothing for
// tracing in release builds.
package dbg

// Logger is the interface our build-tag-selected implementation satisfies.
type Logger interface {
	Printf(format string, a ...interface{})
	Println(a ...interface{})
}

// log is set by either debug_on.go or debug_off.go depending on the
// "debug" build tag.
var log Logger

func Printf(format string, a ...interface{}) {
	log.Printf(format, a...)
}

func Println(a ...interface{}) {
	log.Println(a...)
}
