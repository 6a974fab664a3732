//go:build !noasserts

package decomposer

import "fmt"

// assert panics if cond is false, naming the violated invariant. Compiled
// out entirely under the noasserts build tag; see assert_noasserts.go.
// These catch bugs in the decomposer itself, not caller errors, so they
// panic rather than returning an error.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("numadecomp: invariant violated: "+format, args...))
	}
}
