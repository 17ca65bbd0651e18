package pkgset

// Cycle is an ordered dependency cycle among local workspace packages,
// starting at the first package that re-appeared on the walk path and
// ending with the package that closes the loop. A cycle of A→B→C→A is
// reported as [A B C A].
type Cycle []Name

// DetectCycle searches for a dependency cycle among the local workspace
// packages in the set. Catalog and registry packages are ignored: the
// catalog snapshot is curated to be acyclic, so locally-edited manifests
// are the practically relevant failure mode.
//
// The search runs a depth-first walk from each local package, keeping the
// active path explicitly. A name already on the active path signals a
// cycle, reported as the sub-path from its first occurrence. Packages whose
// entire subgraph has been explored without finding a cycle are memoized,
// so shared subgraphs are not re-walked across roots.
//
// Returns nil when the local package graph is acyclic.
func (q *Query) DetectCycle() Cycle {
	explored := make(map[Name]bool) // fully explored, cycle-free

	for _, local := range q.set.Locals() {
		if cycle := q.walkForCycle(local.Name, nil, explored); cycle != nil {
			return cycle
		}
	}
	return nil
}

// walkForCycle performs the DFS step for name with the current path stack.
// Only edges between packages present in the set are followed; absent
// dependency names cannot form a cycle and are skipped.
func (q *Query) walkForCycle(name Name, path []Name, explored map[Name]bool) Cycle {
	if explored[name] {
		return nil
	}
	for i, onPath := range path {
		if onPath == name {
			cycle := make(Cycle, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return append(cycle, name)
		}
	}

	pkg, ok := q.set.Get(name)
	if !ok {
		return nil
	}

	path = append(path, name)
	for _, dep := range pkg.DependencyNames() {
		if cycle := q.walkForCycle(dep, path, explored); cycle != nil {
			return cycle
		}
	}

	explored[name] = true
	return nil
}
