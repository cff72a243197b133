package org

import (
	"reflect"
	"testing"

	"calibot/internal/domain"
)

func emp(id, name, level, manager string) domain.EmployeeRecord {
	return domain.EmployeeRecord{
		ID:          id,
		Name:        name,
		JobLevel:    level,
		ManagerName: manager,
	}
}

func TestReportingChainClosestFirst(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("a", "Ava Stone", "Engineer", "Ben Ruiz"),
		emp("b", "Ben Ruiz", "Manager", "Cleo Park"),
		emp("c", "Cleo Park", "Director", ""),
	})

	chain := tree.ReportingChain("a")
	if !reflect.DeepEqual(chain, []string{"b", "c"}) {
		t.Fatalf("unexpected chain for a: %v", chain)
	}
	if got := tree.ReportingChain("c"); len(got) != 0 {
		t.Fatalf("expected empty chain for root, got %v", got)
	}
	if got := tree.ReportingChain("missing"); got != nil {
		t.Fatalf("expected nil chain for unknown id, got %v", got)
	}
}

func TestAllReportsTransitive(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("a", "Ava Stone", "Engineer", "Ben Ruiz"),
		emp("b", "Ben Ruiz", "Manager", "Cleo Park"),
		emp("c", "Cleo Park", "Director", ""),
		emp("d", "Dee Moss", "Engineer", "Cleo Park"),
	})

	if got := tree.DirectReports("c"); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("unexpected direct reports for c: %v", got)
	}
	if got := tree.AllReports("c"); !reflect.DeepEqual(got, []string{"b", "d", "a"}) {
		t.Fatalf("unexpected all reports for c: %v", got)
	}
	if got := tree.AllReports("b"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected all reports for b: %v", got)
	}
}

func TestAmbiguousManagerResolvesByRank(t *testing.T) {
	// The individual contributor comes first in the snapshot, so only
	// the rank rule can pick the director.
	tree := BuildTree([]domain.EmployeeRecord{
		emp("ic", "Jordan Lee", "Engineer", ""),
		emp("dir", "Jordan Lee", "Director", ""),
		emp("x", "Max Webb", "Engineer", "Jordan Lee"),
	})

	if got := tree.ManagerOf("x"); got != "dir" {
		t.Fatalf("expected x to resolve to the director, got %q", got)
	}
}

func TestAmbiguousManagerResolvesByExistingReports(t *testing.T) {
	// s1 references "Sam Poe" too; with s1 excluded as a self-match
	// that reference is unambiguous and links s1 under s2 first. When
	// x's ambiguous reference is resolved, equal ranks fall through to
	// the already-manages rule and s2 wins despite coming second.
	tree := BuildTree([]domain.EmployeeRecord{
		emp("s1", "Sam Poe", "Engineer", "Sam Poe"),
		emp("s2", "Sam Poe", "Engineer", ""),
		emp("x", "Pat Quill", "Engineer", "Sam Poe"),
	})

	if got := tree.ManagerOf("s1"); got != "s2" {
		t.Fatalf("expected s1 to resolve to s2, got %q", got)
	}
	if got := tree.ManagerOf("x"); got != "s2" {
		t.Fatalf("expected x to resolve to the managing Sam Poe, got %q", got)
	}
}

func TestAmbiguousManagerFallsBackToSnapshotOrder(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("first", "Ada Ng", "Engineer", ""),
		emp("second", "Ada Ng", "Engineer", ""),
		emp("x", "Lin Cole", "Engineer", "Ada Ng"),
	})

	if got := tree.ManagerOf("x"); got != "first" {
		t.Fatalf("expected snapshot-order tie-break to pick first, got %q", got)
	}
}

func TestSelfReferenceNeverLinks(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("r", "Riley Fox", "Manager", "Riley Fox"),
		emp("e", "Eve Hart", "Engineer", "Riley Fox"),
	})

	if got := tree.ManagerOf("r"); got != "" {
		t.Fatalf("expected self-reference to stay unresolved, got %q", got)
	}
	for _, id := range tree.ReportingChain("r") {
		if id == "r" {
			t.Fatal("employee appears in their own reporting chain")
		}
	}
	if got := tree.ManagerOf("e"); got != "r" {
		t.Fatalf("expected e to resolve to r, got %q", got)
	}

	report := tree.Validate()
	if !reflect.DeepEqual(report.SelfManaged, []string{"r"}) {
		t.Fatalf("unexpected self-managed list: %v", report.SelfManaged)
	}
}

func TestCyclicSnapshotTerminates(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("a", "Ann Beck", "Manager", "Bo Chan"),
		emp("b", "Bo Chan", "Manager", "Ann Beck"),
	})

	if got := tree.AllReports("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected reports inside cycle: %v", got)
	}
	if got := tree.ReportingChain("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected chain inside cycle: %v", got)
	}
	for _, id := range tree.ReportingChain("b") {
		if id == "b" {
			t.Fatal("employee appears in their own reporting chain")
		}
	}
}

func TestResolutionIsDeterministic(t *testing.T) {
	input := []domain.EmployeeRecord{
		emp("d1", "Drew King", "Engineer", ""),
		emp("d2", "Drew King", "Engineer", ""),
		emp("e1", "Ada Wu", "Engineer", "Drew King"),
		emp("e2", "Ben Ito", "Engineer", "Drew King"),
		emp("e3", "Cy Dunn", "Engineer", "Drew King"),
	}

	first := BuildTree(input)
	for i := 0; i < 10; i++ {
		again := BuildTree(input)
		for _, id := range first.IDs() {
			if first.ManagerOf(id) != again.ManagerOf(id) {
				t.Fatalf("run %d: resolution of %s changed: %q vs %q", i, id, first.ManagerOf(id), again.ManagerOf(id))
			}
		}
		if !reflect.DeepEqual(first.Managers(1), again.Managers(1)) {
			t.Fatalf("run %d: manager list changed", i)
		}
	}
}

func TestManagersUsesTransitiveCounts(t *testing.T) {
	tree := BuildTree([]domain.EmployeeRecord{
		emp("a", "Ava Stone", "Engineer", "Ben Ruiz"),
		emp("b", "Ben Ruiz", "Manager", "Cleo Park"),
		emp("c", "Cleo Park", "Director", ""),
		emp("d", "Dee Moss", "Engineer", "Cleo Park"),
	})

	if got := tree.Managers(2); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("expected only c with two or more reports, got %v", got)
	}
	if got := tree.Managers(1); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("unexpected managers with one or more reports: %v", got)
	}
	if got := tree.Managers(5); len(got) != 0 {
		t.Fatalf("expected no managers at threshold 5, got %v", got)
	}
}

func TestLevelRank(t *testing.T) {
	cases := []struct {
		level string
		want  int
	}{
		{"VP of Engineering", 5},
		{"Vice President, Sales", 5},
		{"SVP", 5},
		{"Senior Director", 4},
		{"Director", 4},
		{"Engineering Manager", 3},
		{"Senior Manager", 3},
		{"Mgr, Support", 3},
		{"Senior Engineer", 2},
		{"Sr. Analyst", 2},
		{"Tech Lead", 1},
		{"Engineer II", 0},
		{"Staff", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := levelRank(tc.level); got != tc.want {
			t.Fatalf("levelRank(%q) = %d, want %d", tc.level, got, tc.want)
		}
	}
}
