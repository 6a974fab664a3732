//go:build linux

package topology

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// CurrentNode reports the NUMA node the calling goroutine's underlying
// thread is currently running on, mirroring ktask.c's
// numa_node_id() used to seed a ktask_node's kn_nid. Go gives no
// guarantee the goroutine stays on this thread or node afterward; this is
// a best-effort affinity hint, not a pin.
func CurrentNode() int {
	var cpu, node int
	if err := unix.Getcpu(&cpu, &node); err != nil {
		return 0
	}
	return node
}

// discover reads online CPU count from the process's scheduler affinity
// mask (runtime.NumCPU when the mask can't be read) and NUMA node layout
// from sysfs, falling back to a single-node model when the node list is
// unavailable (containers commonly hide /sys/devices/system/node).
func discover() Info {
	online := onlineCPUs()

	nodes := nodeList()
	if len(nodes) == 0 {
		return Info{OnlineCPUs: online, CPUsPerNode: []int{online}}
	}

	perNode := make([]int, len(nodes))
	for i, node := range nodes {
		perNode[i] = cpusOnNode(node)
	}
	return Info{OnlineCPUs: online, CPUsPerNode: perNode}
}

func onlineCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	return set.Count()
}

// nodeList parses /sys/devices/system/node/online, e.g. "0-1" or "0,2-3".
func nodeList() []int {
	data, err := os.ReadFile("/sys/devices/system/node/online")
	if err != nil {
		return nil
	}
	return parseCPUList(strings.TrimSpace(string(data)))
}

// cpusOnNode counts entries in /sys/devices/system/node/nodeN/cpulist.
func cpusOnNode(node int) int {
	path := filepath.Join("/sys/devices/system/node", "node"+strconv.Itoa(node), "cpulist")
	data, err := os.ReadFile(path)
	if err != nil {
		return 1
	}
	cpus := parseCPUList(strings.TrimSpace(string(data)))
	if len(cpus) == 0 {
		return 1
	}
	return len(cpus)
}

// parseCPUList expands a Linux-style list like "0-2,4" into [0,1,2,4].
func parseCPUList(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, errLo := strconv.Atoi(part[:dash])
			hi, errHi := strconv.Atoi(part[dash+1:])
			if errLo != nil || errHi != nil {
				continue
			}
			for n := lo; n <= hi; n++ {
				out = append(out, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
