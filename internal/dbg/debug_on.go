//go:build debug

package dbg

import (
	"fmt"
	stdlog "log"
	"os"
)

type liveLogger struct {
	l *stdlog.Logger
}

func init() {
	log = &liveLogger{l: stdlog.New(os.Stderr, "gbacore: ", stdlog.Lshortfile)}
}

func (d *liveLogger) Printf(format string, a ...interface{}) {
	d.l.Output(3, fmt.Sprintf(format, a...))
}

func (d *liveLogger) Println(a ...interface{}) {
	d.l.Output(3, fmt.Sprintln(a...))
}
