// Package depgraph implements the dependency analyzer: it extracts
// inter-task dependencies from {{name}} placeholders in a task's prompt
// template and partitions tasks into ordered wavefronts (batches) a
// parallel executor can run one after another.
package depgraph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/taskmind/taskmind/engine"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_\-]+)\s*\}\}`)

// Dependencies returns the task names that task's prompt template
// references via {{name}} placeholders, in order of first appearance and
// without duplicates, excluding the reserved built-ins user_request and
// prev_output and any name not present in knownTasks. Plan position is not
// considered: a reference to a later task is a dependency too.
func Dependencies(task engine.TaskDefinition, knownTasks map[string]bool) []string {
	matches := placeholderPattern.FindAllStringSubmatch(task.PromptTemplate, -1)

	seen := make(map[string]bool, len(matches))
	var deps []string
	for _, m := range matches {
		name := m[1]
		if name == engine.PlaceholderUserRequest || name == engine.PlaceholderPrevOutput {
			continue
		}
		if !knownTasks[name] || seen[name] {
			continue
		}
		seen[name] = true
		deps = append(deps, name)
	}

	return deps
}

// Analysis is the result of analyzing a plan's tasks: an ordered list of
// batches and the resulting parallelism ratio.
type Analysis struct {
	Batches          [][]engine.TaskDefinition
	ParallelismRatio float64
}

// CycleError reports that the dependency graph could not be fully
// partitioned into batches because of a circular reference.
type CycleError struct {
	Task string // one task participating in the detected cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("depgraph: circular dependency detected, involving task %q", e.Task)
}

// Analyze partitions tasks into dependency-respecting batches (wavefronts).
// Every task appears in exactly one batch; every dependency of a task is
// in a strictly earlier batch; task order within a batch is stable with
// respect to the input order.
func Analyze(tasks []engine.TaskDefinition) (Analysis, error) {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.Name] = true
	}

	deps := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps[t.Name] = Dependencies(t, known)
	}

	placed := make(map[string]bool, len(tasks))
	remaining := make([]engine.TaskDefinition, len(tasks))
	copy(remaining, tasks)

	var batches [][]engine.TaskDefinition

	for len(remaining) > 0 {
		var batch []engine.TaskDefinition
		var stillRemaining []engine.TaskDefinition

		for _, t := range remaining {
			ready := true
			for _, dep := range deps[t.Name] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, t)
			} else {
				stillRemaining = append(stillRemaining, t)
			}
		}

		if len(batch) == 0 {
			// Every remaining task has an unplaced dependency. Follow those
			// from the first stalled task until a name repeats; the
			// repeated name lies on a cycle.
			name := remaining[0].Name
			visited := make(map[string]bool)
			for !visited[name] {
				visited[name] = true
				for _, dep := range deps[name] {
					if !placed[dep] {
						name = dep
						break
					}
				}
			}
			return Analysis{}, &CycleError{Task: name}
		}

		for _, t := range batch {
			placed[t.Name] = true
		}
		batches = append(batches, batch)
		remaining = stillRemaining
	}

	return Analysis{
		Batches:          batches,
		ParallelismRatio: parallelismRatio(len(tasks), len(batches)),
	}, nil
}

func parallelismRatio(numTasks, numBatches int) float64 {
	if numTasks <= 1 {
		return 0
	}
	return 1 - (float64(numBatches) / float64(numTasks))
}

// Placeholders returns every {{name}} reference in s, including reserved
// built-ins, for callers that need the full placeholder set rather than
// just inter-task dependencies (e.g. template rendering in executor).
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

// Render substitutes every {{name}} placeholder in template with its value
// from vars. A placeholder with no entry in vars is left verbatim, and its
// name is logged as a warning through logger (a nil logger is treated as
// engine.NoOpLogger{}).
func Render(template string, vars map[string]string, logger engine.Logger) string {
	logger = engine.ResolveLogger(logger, "depgraph")
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		name := sub[1]
		if value, ok := vars[name]; ok {
			return value
		}
		logger.Warn("depgraph: unresolved placeholder left literal", map[string]interface{}{
			"placeholder": name,
		})
		return match
	})
}
