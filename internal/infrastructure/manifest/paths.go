package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// Paths use slash notation: "recovery/checkpoints/0". Numeric segments index
// into sequences.

func split(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func index(seg string, n int) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("array index expected at segment %q", seg)
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range", i)
	}
	return i, nil
}

// getAt returns the value at path.
func getAt(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, seg := range split(path) {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := index(seg, len(node))
			if err != nil {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setAt stores val at path, creating intermediate objects for map segments.
func setAt(root map[string]any, path string, val any) error {
	segs := split(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty path")
	}
	var cur any = root
	for i, seg := range segs {
		last := i == len(segs)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[seg] = val
				return nil
			}
			next, ok := node[seg]
			if !ok {
				next = map[string]any{}
				node[seg] = next
			}
			cur = next
		case []any:
			idx, err := index(seg, len(node))
			if err != nil {
				return err
			}
			if last {
				node[idx] = val
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("cannot descend into %T at %q", node, seg)
		}
	}
	return nil
}

// deleteAt removes the map key at path. Missing keys are ignored.
func deleteAt(root map[string]any, path string) error {
	segs := split(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty path")
	}
	parentPath := strings.Join(segs[:len(segs)-1], "/")
	parent, ok := getAt(root, parentPath)
	if !ok {
		return nil
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot delete %q from %T", segs[len(segs)-1], parent)
	}
	delete(m, segs[len(segs)-1])
	return nil
}
