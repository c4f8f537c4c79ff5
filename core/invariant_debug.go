//go:build simdebug

package core

import "fmt"

// invariant panics when cond is false. Only builds tagged simdebug check.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("core: invariant violated: "+format, args...))
	}
}
