package levelgraph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// validateLevels performs all structural checks on the given level set.
// Returns every problem found, or nil if the set is valid.
func validateLevels(levels []Level) []string {
	var errs []string

	byID := make(map[int]Level, len(levels))

	// Check for bad and duplicate IDs
	for _, l := range levels {
		if l.ID < 1 {
			errs = append(errs, fmt.Sprintf("level ID must be >= 1, got %d", l.ID))
		}
		if _, dup := byID[l.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate level ID: %d", l.ID))
			continue
		}
		byID[l.ID] = l
	}

	// Check prerequisites exist and come earlier on the map
	for _, l := range levels {
		seen := make(map[int]bool, len(l.Prerequisites))
		for _, prereqID := range l.Prerequisites {
			if seen[prereqID] {
				errs = append(errs, fmt.Sprintf("level %d lists prerequisite %d twice", l.ID, prereqID))
				continue
			}
			seen[prereqID] = true

			p, ok := byID[prereqID]
			if !ok {
				errs = append(errs, fmt.Sprintf("level %d references unknown prerequisite %d", l.ID, prereqID))
				continue
			}
			if p.Order >= l.Order {
				errs = append(errs, fmt.Sprintf("level %d (order %d) requires level %d with order %d; prerequisites must come earlier",
					l.ID, l.Order, p.ID, p.Order))
			}
		}
	}

	if cycle := cycleMembers(byID); len(cycle) > 0 {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = strconv.Itoa(id)
		}
		errs = append(errs, fmt.Sprintf("cycle detected involving levels: %s", strings.Join(parts, ", ")))
	}

	hasRoot := false
	for _, l := range levels {
		if len(l.Prerequisites) == 0 {
			hasRoot = true
			break
		}
	}
	if !hasRoot {
		errs = append(errs, "no root levels found (at least one level must have no prerequisites)")
	}

	for _, l := range levels {
		if l.PassThreshold < 0 || l.PassThreshold > 100 {
			errs = append(errs, fmt.Sprintf("level %d: pass threshold must be in [0, 100], got %d", l.ID, l.PassThreshold))
		}
	}

	return errs
}

// cycleMembers runs Kahn's algorithm and returns the IDs left with a positive
// in-degree, sorted. An empty result means the graph is acyclic.
// Edges to unknown prerequisites are ignored.
func cycleMembers(byID map[int]Level) []int {
	inDegree := make(map[int]int, len(byID))
	adjList := make(map[int][]int)
	for id, l := range byID {
		deg := 0
		for _, prereqID := range l.Prerequisites {
			if _, ok := byID[prereqID]; ok {
				adjList[prereqID] = append(adjList[prereqID], id)
				deg++
			}
		}
		inDegree[id] = deg
	}

	var queue []int
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited == len(byID) {
		return nil
	}
	var members []int
	for id, deg := range inDegree {
		if deg > 0 {
			members = append(members, id)
		}
	}
	sort.Ints(members)
	return members
}
