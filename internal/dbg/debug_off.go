//go:build !debug

package dbg

type noopLogger struct{}

func init() {
	log = noopLogger{}
}

func (noopLogger) Printf(format string, a ...interface{}) {}
func (noopLogger) Println(a ...interface{})                {}
