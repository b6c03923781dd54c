package logger

import (
	"fmt"
	"runtime"
	"strings"
)

// CaptureStacktrace at most depth frames as "function\n\tfile:line" blocks.
// skip is passed to runtime.Callers; runtime frames are left out.
func CaptureStacktrace(skip, depth int) string {
	if depth <= 0 {
		depth = 10
	}

	pcs := make([]uintptr, depth+8)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for count := 0; count < depth; {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			if count > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s\n\t%s:%d", f.Function, f.File, f.Line)
			count++
		}
		if !more {
			break
		}
	}
	return b.String()
}
