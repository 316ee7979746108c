package lineage

import (
	"reflect"
	"testing"
)

func TestTopoSort(t *testing.T) {
	g := New()
	g.Add("root", 1)
	g.Add("a", 1)
	g.Add("b", 1)
	g.Link("root", "a")
	g.Link("a", "b")

	order, ok := g.TopoSort()
	if !ok {
		t.Fatal("TopoSort() reported a cycle in a DAG")
	}
	pos := make(map[string]int)
	for i, idx := range order {
		pos[g.Node(idx).ID] = i
	}
	if !(pos["root"] < pos["a"] && pos["a"] < pos["b"]) {
		t.Errorf("order violates edges: %v", pos)
	}
}

func TestTopoSort_CycleDetected(t *testing.T) {
	g := New()
	g.Link("a", "b")
	g.Link("b", "a")

	if _, ok := g.TopoSort(); ok {
		t.Error("TopoSort() ok = true for a cyclic graph")
	}
}

func TestCycles(t *testing.T) {
	g := New()
	g.Link("a", "b")
	g.Link("b", "c")
	g.Link("c", "a")
	g.Link("c", "d") // d hangs off the cycle

	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("Cycles() = %v, want one component", cycles)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestCycles_NoneInDAG(t *testing.T) {
	g := New()
	g.Link("a", "b")
	g.Link("a", "c")
	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Errorf("Cycles() = %v, want none", cycles)
	}
}

func TestCriticalPath(t *testing.T) {
	g := New()
	g.Add("root", 10)
	g.Add("short", 5)
	g.Add("long1", 20)
	g.Add("long2", 30)
	g.Link("root", "short")
	g.Link("root", "long1")
	g.Link("long1", "long2")

	path, weight := g.CriticalPath()
	want := []string{"root", "long1", "long2"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("path = %v, want %v", path, want)
	}
	if weight != 60 {
		t.Errorf("weight = %v, want 60", weight)
	}
}

func TestCriticalPath_SingleNode(t *testing.T) {
	g := New()
	g.Add("only", 7)
	path, weight := g.CriticalPath()
	if len(path) != 1 || path[0] != "only" || weight != 7 {
		t.Errorf("path = %v weight = %v, want [only] 7", path, weight)
	}
}

func TestCriticalPath_Empty(t *testing.T) {
	if path, _ := New().CriticalPath(); path != nil {
		t.Errorf("path = %v, want nil", path)
	}
}

func TestAddUpdatesWeight(t *testing.T) {
	g := New()
	i := g.Add("s", 1)
	j := g.Add("s", 9)
	if i != j {
		t.Errorf("re-add returned different index: %d vs %d", i, j)
	}
	if g.Node(i).Weight != 9 {
		t.Errorf("Weight = %v, want 9", g.Node(i).Weight)
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
}
