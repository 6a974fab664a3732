//go:build !linux

package topology

import "runtime"

// discover models the host as a single NUMA node on non-Linux builds,
// where sysfs and sched_getaffinity have no equivalent.
func discover() Info {
	n := runtime.NumCPU()
	return Info{OnlineCPUs: n, CPUsPerNode: []int{n}}
}

// CurrentNode always reports node 0 on non-Linux builds, where there is
// no getcpu(2) equivalent to query.
func CurrentNode() int {
	return 0
}
