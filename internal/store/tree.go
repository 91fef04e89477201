package store

import (
	"encoding/json"
	"strings"
)

// The store keeps one nested tree of map[string]any nodes with JSON scalars
// at the leaves, mirroring how the data lives at hierarchical key paths.

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

func cleanPath(path string) string {
	return strings.Join(splitPath(path), "/")
}

// normalize converts an arbitrary value into plain JSON shapes (maps, slices,
// scalars) and prunes empty maps, which the store treats as absence.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return prune(v), nil
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for key, child := range m {
		if pruned := prune(child); pruned == nil {
			delete(m, key)
		} else {
			m[key] = pruned
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func setAt(tree map[string]any, segs []string, value any) {
	node := tree
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			// A scalar in the way is replaced, same as overwriting it.
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// deleteAt removes the subtree at segs and prunes emptied ancestors so that
// absence is always represented the same way.
func deleteAt(tree map[string]any, segs []string) bool {
	if len(segs) == 0 {
		return false
	}
	if len(segs) == 1 {
		_, existed := tree[segs[0]]
		delete(tree, segs[0])
		return existed
	}
	child, ok := tree[segs[0]].(map[string]any)
	if !ok {
		return false
	}
	existed := deleteAt(child, segs[1:])
	if len(child) == 0 {
		delete(tree, segs[0])
	}
	return existed
}

func getAt(tree map[string]any, segs []string) (any, bool) {
	var node any = tree
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// flatten decomposes a subtree into leaf rows for durable storage.
func flatten(prefix string, value any, out map[string]any) {
	if m, ok := value.(map[string]any); ok {
		for key, child := range m {
			flatten(prefix+"/"+key, child, out)
		}
		return
	}
	out[prefix] = value
}

// related reports whether a change at path is visible from a watch prefix,
// i.e. one is an ancestor of the other (or they are equal).
func related(prefix, path string) bool {
	if prefix == "" || path == "" {
		return true
	}
	return strings.HasPrefix(path+"/", prefix+"/") ||
		strings.HasPrefix(prefix+"/", path+"/")
}
