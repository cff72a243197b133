// Package org resolves the reporting structure hidden in a calibration
// snapshot. HRIS exports reference managers by display name, names are
// not unique, and real exports contain typos, loops, and people who list
// themselves as their own manager. Everything here is tolerant: bad
// structure is reported as data, never as an error.
package org

import (
	"strings"

	"calibot/internal/domain"
)

// Node is one employee in the resolved tree.
type Node struct {
	ID        string
	ManagerID string // empty for roots and unresolved references
	Rank      int
	Reports   []string // direct report IDs in snapshot order
}

// Tree is the resolved reporting structure of one snapshot. Resolution
// is deterministic for a given record order: every list inside the tree
// follows snapshot order, never map order.
type Tree struct {
	nodes        map[string]*Node
	order        []string
	nameIndex    map[string][]string // normalized name -> IDs in snapshot order
	unresolved   []Orphan
	selfManaged  []string
	duplicateIDs []string
}

// Orphan is an employee whose manager reference matched nobody in the
// snapshot.
type Orphan struct {
	EmployeeID  string
	ManagerName string
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// levelRank maps a job level to its seniority rank for ambiguity
// tie-breaking. Titles are matched by keyword so both plain titles and
// composite level codes resolve; the switch order makes "Senior Manager"
// rank as a manager, not as a senior IC. Unknown levels rank 0.
func levelRank(level string) int {
	lv := strings.ToLower(level)
	switch {
	case strings.Contains(lv, "vp"), strings.Contains(lv, "vice president"):
		return 5
	case strings.Contains(lv, "director"):
		return 4
	case strings.Contains(lv, "manager"), strings.Contains(lv, "mgr"):
		return 3
	case strings.Contains(lv, "senior"), strings.Contains(lv, "sr"):
		return 2
	case strings.Contains(lv, "lead"):
		return 1
	}
	return 0
}

// BuildTree resolves manager display names against the snapshot and
// links every employee to at most one manager. When a name matches
// several employees the winner is picked by job-level rank, then by
// already having direct reports, then by snapshot order. An employee
// never resolves to themselves. Records reusing an already-seen ID are
// dropped and reported through Validate.
func BuildTree(employees []domain.EmployeeRecord) *Tree {
	t := &Tree{
		nodes:     make(map[string]*Node, len(employees)),
		nameIndex: make(map[string][]string),
	}

	kept := make([]domain.EmployeeRecord, 0, len(employees))
	for _, e := range employees {
		if _, dup := t.nodes[e.ID]; dup {
			t.duplicateIDs = append(t.duplicateIDs, e.ID)
			continue
		}
		t.nodes[e.ID] = &Node{ID: e.ID, Rank: levelRank(e.JobLevel)}
		t.order = append(t.order, e.ID)
		kept = append(kept, e)
		if key := nameKey(e.Name); key != "" {
			t.nameIndex[key] = append(t.nameIndex[key], e.ID)
		}
	}

	// Unambiguous references link first so that "already manages
	// someone" means something by the time ties are broken.
	type pendingLink struct {
		employeeID string
		candidates []string
	}
	var ambiguous []pendingLink
	for _, e := range kept {
		key := nameKey(e.ManagerName)
		if key == "" {
			continue
		}
		candidates := t.candidatesFor(key, e.ID)
		switch len(candidates) {
		case 0:
			if len(t.nameIndex[key]) > 0 {
				// Matched only the employee themselves.
				t.selfManaged = append(t.selfManaged, e.ID)
			} else {
				t.unresolved = append(t.unresolved, Orphan{EmployeeID: e.ID, ManagerName: e.ManagerName})
			}
		case 1:
			t.link(e.ID, candidates[0])
		default:
			ambiguous = append(ambiguous, pendingLink{employeeID: e.ID, candidates: candidates})
		}
	}

	for _, p := range ambiguous {
		best := p.candidates[0]
		for _, c := range p.candidates[1:] {
			if t.outranks(c, best) {
				best = c
			}
		}
		t.link(p.employeeID, best)
	}

	return t
}

func (t *Tree) candidatesFor(key, selfID string) []string {
	ids := t.nameIndex[key]
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != selfID {
			out = append(out, id)
		}
	}
	return out
}

// outranks reports whether candidate a beats the current best b.
// Candidates arrive in snapshot order, so returning false on a full tie
// keeps the earliest one.
func (t *Tree) outranks(a, b string) bool {
	na, nb := t.nodes[a], t.nodes[b]
	if na.Rank != nb.Rank {
		return na.Rank > nb.Rank
	}
	aManages := len(na.Reports) > 0
	bManages := len(nb.Reports) > 0
	if aManages != bManages {
		return aManages
	}
	return false
}

func (t *Tree) link(employeeID, managerID string) {
	t.nodes[employeeID].ManagerID = managerID
	m := t.nodes[managerID]
	m.Reports = append(m.Reports, employeeID)
}

// IDs returns every employee ID in snapshot order.
func (t *Tree) IDs() []string {
	return append([]string(nil), t.order...)
}

// Size returns the number of employees in the tree.
func (t *Tree) Size() int {
	return len(t.order)
}

// ManagerOf returns the resolved manager of an employee, or "" for
// roots, unresolved references, and unknown IDs.
func (t *Tree) ManagerOf(id string) string {
	if n, ok := t.nodes[id]; ok {
		return n.ManagerID
	}
	return ""
}

// DirectReports returns the employees directly managed by id, in
// snapshot order.
func (t *Tree) DirectReports(id string) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Reports...)
}

// AllReports returns every employee under id, direct and indirect. The
// walk carries a visited set so a cyclic snapshot cannot hang it, and an
// employee is never counted into their own organization.
func (t *Tree) AllReports(id string) []string {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	visited := map[string]bool{id: true}
	var out []string
	queue := append([]string(nil), t.nodes[id].Reports...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		queue = append(queue, t.nodes[cur].Reports...)
	}
	return out
}

// ReportingChain returns the managers above an employee, closest first.
// The employee themselves is in the visited set from the start, so a
// snapshot cycle can never make someone their own ancestor.
func (t *Tree) ReportingChain(id string) []string {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	visited := map[string]bool{id: true}
	var chain []string
	cur := t.nodes[id].ManagerID
	for cur != "" && !visited[cur] {
		visited[cur] = true
		chain = append(chain, cur)
		cur = t.nodes[cur].ManagerID
	}
	return chain
}

// Managers returns every employee whose full organization, direct and
// indirect, has at least minTeamSize people, in snapshot order.
func (t *Tree) Managers(minTeamSize int) []string {
	var out []string
	for _, id := range t.order {
		if len(t.AllReports(id)) >= minTeamSize {
			out = append(out, id)
		}
	}
	return out
}
