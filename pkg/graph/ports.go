package graph

import "sort"

func sortedPorts(m map[string]Edge) []string {
	ports := make([]string, 0, len(m))
	for p := range m {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
