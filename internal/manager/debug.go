package manager

import (
	"bufio"
	"os"
	"strings"
)

// debuggerAttached reports whether a tracer such as Delve is attached to the
// process. Only Linux exposes this; elsewhere it reports false.
func debuggerAttached() bool {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false
	}
	return tracerAttached(string(data))
}

func tracerAttached(status string) bool {
	sc := bufio.NewScanner(strings.NewReader(status))
	for sc.Scan() {
		if pid, ok := strings.CutPrefix(sc.Text(), "TracerPid:"); ok {
			pid = strings.TrimSpace(pid)
			return pid != "" && pid != "0"
		}
	}
	return false
}
