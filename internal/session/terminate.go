package session

import (
	"github.com/shirou/gopsutil/v3/process"
)

// terminateTree kills pid and every descendant, deepest first, so a shell
// wrapper cannot leave its program running.
func terminateTree(pid int) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}
	killTree(p)
}

func killTree(p *process.Process) {
	children, _ := p.Children()
	for _, c := range children {
		killTree(c)
	}
	p.Kill()
}
