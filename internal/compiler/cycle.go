package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/version"
)

// Cycle is a set of classes that extend or include each other.
type Cycle struct {
	Path    []string `json:"path"` // ["A", "B", "A"]
	Message string   `json:"message"`
}

// AnalyzeCycles finds dependency cycles among class specs.
//
// Each spec depends on the classes it extends and includes. References
// that do not resolve within specs are ignored here; the registry reports
// them when the classes are defined. A cycle-free manifest returns an
// empty list.
func AnalyzeCycles(specs []ir.ClassSpec) []Cycle {
	graph := buildDependencyGraph(specs)
	cycles := []Cycle{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// dependencyGraph maps a class ref to the refs it depends on.
type dependencyGraph map[string][]string

func buildDependencyGraph(specs []ir.ClassSpec) dependencyGraph {
	graph := make(dependencyGraph)
	for _, spec := range specs {
		node := version.Ref{Name: spec.Name, Version: spec.Version}.String()
		if graph[node] == nil {
			graph[node] = []string{}
		}

		refs := spec.Includes
		if spec.Extends != "" {
			refs = append([]string{spec.Extends}, refs...)
		}
		for _, s := range refs {
			if dep, ok := ResolveRef(specs, s); ok {
				graph[node] = append(graph[node], dep.String())
			}
		}
	}
	return graph
}

// ResolveRef finds the spec a reference points at. A versioned reference
// needs an exact version match; an unversioned one picks the newest spec
// of that name.
func ResolveRef(specs []ir.ClassSpec, s string) (version.Ref, bool) {
	ref, err := version.ParseRef(s)
	if err != nil {
		return version.Ref{}, false
	}

	found := false
	var best version.Ref
	for _, spec := range specs {
		cand := version.Ref{Name: spec.Name, Version: spec.Version}
		if !version.Same(cand, ref) {
			continue
		}
		if ref.Version != "" {
			if cand.Version != "" && version.Compare(cand.Version, ref.Version) == 0 {
				return cand, true
			}
			continue
		}
		if !found || version.Compare(cand.Version, best.Version) >= 0 {
			best, found = cand, true
		}
	}
	return best, found
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph dependencyGraph) Cycle {
	if len(scc) == 1 {
		return Cycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("class depends on itself: %s → %s", scc[0], scc[0]),
		}
	}

	sort.Strings(scc)
	path := reconstructCyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool)
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
