// Package jsonpatch computes RFC 6902 patches between two JSON documents.
package jsonpatch

import (
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Op is a single patch operation.
type Op = map[string]any

// Between encodes before and after as JSON and returns the patch that turns the
// first into the second. Operations are ordered by path.
func Between(before, after any) ([]Op, error) {
	a, err := generic(before)
	if err != nil {
		return nil, err
	}
	b, err := generic(after)
	if err != nil {
		return nil, err
	}
	return Diff(a, b, ""), nil
}

func generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diff computes an RFC 6902 JSON Patch that transforms a into b.
// Both a and b should be the result of json.Unmarshal into any.
// Path should be "" for the root document.
func Diff(a, b any, path string) []Op {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Op{replaceOp(path, b)}
	}

	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffObjects(aMap, bMap, path)
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArrays(aArr, bArr, path)
	}

	if aIsMap || bIsMap || aIsArr || bIsArr || a != b {
		return []Op{replaceOp(path, b)}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func diffObjects(a, b map[string]any, path string) []Op {
	var ops []Op

	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			ops = append(ops, removeOp(path+"/"+escapeKey(k)))
		}
	}

	for _, k := range sortedKeys(b) {
		childPath := path + "/" + escapeKey(k)
		av, inA := a[k]
		if !inA {
			ops = append(ops, addOp(childPath, b[k]))
			continue
		}
		ops = append(ops, Diff(av, b[k], childPath)...)
	}
	return ops
}

// diffArrays compares by index. History grows at the front, so a publish shows
// up as a replace of every existing slot plus one add at the end.
func diffArrays(a, b []any, path string) []Op {
	var ops []Op
	common := min(len(a), len(b))

	for i := 0; i < common; i++ {
		ops = append(ops, Diff(a[i], b[i], path+"/"+strconv.Itoa(i))...)
	}
	// descending, so earlier indices stay valid
	for i := len(a) - 1; i >= common; i-- {
		ops = append(ops, removeOp(path+"/"+strconv.Itoa(i)))
	}
	for i := common; i < len(b); i++ {
		ops = append(ops, addOp(path+"/"+strconv.Itoa(i), b[i]))
	}
	return ops
}

func replaceOp(path string, value any) Op {
	return Op{"op": "replace", "path": path, "value": value}
}

func addOp(path string, value any) Op {
	return Op{"op": "add", "path": path, "value": value}
}

func removeOp(path string) Op {
	return Op{"op": "remove", "path": path}
}

// escapeKey escapes a JSON Pointer token per RFC 6901.
func escapeKey(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
