package org

// StructureReport describes everything questionable about a snapshot's
// reporting structure. Building it never fails; a malformed org chart is
// a finding for the facilitator, not a crash.
type StructureReport struct {
	Employees      int
	Roots          []string
	Orphans        []Orphan
	SelfManaged    []string
	Cycles         [][]string
	DuplicateNames []string
	DuplicateIDs   []string
}

// Clean reports whether the snapshot has none of the structural problems
// the report tracks.
func (r StructureReport) Clean() bool {
	return len(r.Orphans) == 0 &&
		len(r.SelfManaged) == 0 &&
		len(r.Cycles) == 0 &&
		len(r.DuplicateNames) == 0 &&
		len(r.DuplicateIDs) == 0
}

// Validate walks the resolved tree and reports roots, orphaned manager
// references, self-managed employees, reporting cycles, and duplicate
// names and IDs. Every list follows snapshot order.
func (t *Tree) Validate() StructureReport {
	report := StructureReport{
		Employees:    len(t.order),
		Orphans:      append([]Orphan(nil), t.unresolved...),
		SelfManaged:  append([]string(nil), t.selfManaged...),
		DuplicateIDs: append([]string(nil), t.duplicateIDs...),
	}

	for _, id := range t.order {
		if t.nodes[id].ManagerID == "" {
			report.Roots = append(report.Roots, id)
		}
	}

	// Emit duplicate names in snapshot order of their first holder.
	dupNameByFirstID := make(map[string]string)
	for key, ids := range t.nameIndex {
		if len(ids) > 1 {
			dupNameByFirstID[ids[0]] = key
		}
	}
	for _, id := range t.order {
		if key, ok := dupNameByFirstID[id]; ok {
			report.DuplicateNames = append(report.DuplicateNames, key)
		}
	}

	// Cycle detection: walk the manager chain from every employee,
	// attributing each cycle to its members exactly once.
	inReportedCycle := make(map[string]bool)
	for _, start := range t.order {
		if inReportedCycle[start] {
			continue
		}
		positions := make(map[string]int)
		var path []string
		cur := start
		for cur != "" {
			if pos, onPath := positions[cur]; onPath {
				cycle := append([]string(nil), path[pos:]...)
				fresh := false
				for _, member := range cycle {
					if !inReportedCycle[member] {
						fresh = true
					}
				}
				if fresh {
					report.Cycles = append(report.Cycles, cycle)
					for _, member := range cycle {
						inReportedCycle[member] = true
					}
				}
				break
			}
			if inReportedCycle[cur] {
				break
			}
			positions[cur] = len(path)
			path = append(path, cur)
			cur = t.nodes[cur].ManagerID
		}
	}

	return report
}
