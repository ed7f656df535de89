// Package conlog prints compile progress, statistics and warnings through
// an injectable printf, so embedders and tests can redirect or silence the
// output.
package conlog

import (
	"fmt"
	"os"
)

var p func(string, ...interface{}) = func(format string, v ...interface{}) {
	fmt.Fprintf(os.Stdout, format, v...)
}

func SetPrintf(f func(string, ...interface{})) {
	p = f
}

// Discard drops all output.
func Discard() {
	p = func(string, ...interface{}) {}
}

func Printf(format string, v ...interface{}) {
	p(format, v...)
}

// Progress marks the start of a pipeline phase.
func Progress(name string) {
	p("---- %s ----\n", name)
}

// Statf prints an end of phase statistics line.
func Statf(format string, v ...interface{}) {
	p(format, v...)
}

// Warnf reports a recoverable defect in the input geometry.
func Warnf(format string, v ...interface{}) {
	p("WARNING: "+format, v...)
}
