package levelgraph

import (
	"slices"
	"sort"
)

// Graph is the immutable level catalog with precomputed indices.
// It is safe for concurrent use.
type Graph struct {
	levels     []Level // sorted by order, then ID
	byID       map[int]int
	dependents map[int][]int
	topoOrder  []int
}

// New validates the levels and builds a Graph. Any structural problem yields
// a *ConfigError listing every issue found.
func New(levels []Level) (*Graph, error) {
	if problems := validateLevels(levels); len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}

	gr := &Graph{
		levels:     make([]Level, len(levels)),
		byID:       make(map[int]int, len(levels)),
		dependents: make(map[int][]int),
	}
	for i, l := range levels {
		gr.levels[i] = l.clone()
	}
	sort.Slice(gr.levels, func(i, j int) bool {
		if gr.levels[i].Order != gr.levels[j].Order {
			return gr.levels[i].Order < gr.levels[j].Order
		}
		return gr.levels[i].ID < gr.levels[j].ID
	})

	for i := range gr.levels {
		gr.byID[gr.levels[i].ID] = i
	}

	// Build reverse edges (dependents)
	for _, l := range gr.levels {
		for _, prereqID := range l.Prerequisites {
			gr.dependents[prereqID] = append(gr.dependents[prereqID], l.ID)
		}
	}
	for id := range gr.dependents {
		sort.Ints(gr.dependents[id])
	}

	gr.topoOrder = gr.topologicalSort()
	return gr, nil
}

// topologicalSort orders level IDs with Kahn's algorithm, breaking ties by
// map order so the result is deterministic.
func (gr *Graph) topologicalSort() []int {
	inDegree := make(map[int]int, len(gr.levels))
	var queue []int
	for _, l := range gr.levels {
		inDegree[l.ID] = len(l.Prerequisites)
		if len(l.Prerequisites) == 0 {
			queue = append(queue, l.ID)
		}
	}

	order := make([]int, 0, len(gr.levels))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, depID := range gr.dependents[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
		sort.SliceStable(queue, func(i, j int) bool {
			return gr.byID[queue[i]] < gr.byID[queue[j]]
		})
	}
	return order
}

// Level returns the level with the given ID.
func (gr *Graph) Level(id int) (Level, bool) {
	i, ok := gr.byID[id]
	if !ok {
		return Level{}, false
	}
	return gr.levels[i].clone(), true
}

// Has reports whether the catalog defines the level.
func (gr *Graph) Has(id int) bool {
	_, ok := gr.byID[id]
	return ok
}

// Levels returns all levels in map order.
func (gr *Graph) Levels() []Level {
	out := make([]Level, len(gr.levels))
	for i, l := range gr.levels {
		out[i] = l.clone()
	}
	return out
}

// Len returns the number of levels.
func (gr *Graph) Len() int {
	return len(gr.levels)
}

// PrerequisitesOf returns the direct prerequisite IDs of a level, or nil for
// an unknown level.
func (gr *Graph) PrerequisitesOf(id int) []int {
	i, ok := gr.byID[id]
	if !ok {
		return nil
	}
	return slices.Clone(gr.levels[i].Prerequisites)
}

// IsRoot reports whether the level exists and has no prerequisites.
func (gr *Graph) IsRoot(id int) bool {
	i, ok := gr.byID[id]
	return ok && len(gr.levels[i].Prerequisites) == 0
}

// Roots returns the IDs of all root levels in map order.
func (gr *Graph) Roots() []int {
	var roots []int
	for _, l := range gr.levels {
		if len(l.Prerequisites) == 0 {
			roots = append(roots, l.ID)
		}
	}
	return roots
}

// Dependents returns the IDs of levels that directly require the given level.
func (gr *Graph) Dependents(id int) []int {
	return slices.Clone(gr.dependents[id])
}

// TopologicalOrder returns all level IDs in a valid topological order.
func (gr *Graph) TopologicalOrder() []int {
	return slices.Clone(gr.topoOrder)
}

// IsUnlocked returns true if every prerequisite of the level is in the
// completed set. Unknown levels are never unlocked.
func (gr *Graph) IsUnlocked(id int, completed map[int]bool) bool {
	i, ok := gr.byID[id]
	if !ok {
		return false
	}
	for _, prereqID := range gr.levels[i].Prerequisites {
		if !completed[prereqID] {
			return false
		}
	}
	return true
}
