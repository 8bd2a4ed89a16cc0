package dag

import "sort"

// reachable reports whether to can be reached from from by following succ.
func reachable(succ map[string][]string, from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for _, next := range succ[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// inDegrees counts the predecessors of every name in order.
func inDegrees(order []string, pred map[string][]string) map[string]int {
	deg := make(map[string]int, len(order))
	for _, name := range order {
		deg[name] = len(pred[name])
	}
	return deg
}

// indexOf maps names to their registration position.
func indexOf(order []string) map[string]int {
	idx := make(map[string]int, len(order))
	for i, name := range order {
		idx[name] = i
	}
	return idx
}

// sortByIndex orders names by registration position.
func sortByIndex(names []string, idx map[string]int) {
	sort.Slice(names, func(i, j int) bool { return idx[names[i]] < idx[names[j]] })
}

// topoOrder is Kahn's algorithm with a FIFO ready queue. Roots keep
// registration order, and names released by the same completion are
// queued in registration order.
func topoOrder(order []string, succ, pred map[string][]string) []string {
	deg := inDegrees(order, pred)
	idx := indexOf(order)

	var queue []string
	for _, name := range order {
		if deg[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]string, 0, len(order))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, name)

		var released []string
		for _, next := range succ[name] {
			deg[next]--
			if deg[next] == 0 {
				released = append(released, next)
			}
		}
		sortByIndex(released, idx)
		queue = append(queue, released...)
	}
	return sorted
}

// levels groups names by dependency depth. Names within a level have no
// ordering between them and may run in parallel.
func levels(order []string, succ, pred map[string][]string) [][]string {
	deg := inDegrees(order, pred)
	idx := indexOf(order)

	var queue []string
	for _, name := range order {
		if deg[name] == 0 {
			queue = append(queue, name)
		}
	}

	var out [][]string
	for len(queue) > 0 {
		out = append(out, queue)

		var next []string
		for _, name := range queue {
			for _, dep := range succ[name] {
				deg[dep]--
				if deg[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sortByIndex(next, idx)
		queue = next
	}
	return out
}
