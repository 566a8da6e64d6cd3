package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ChangeKind is the closed set of schema difference categories §4.3 names.
type ChangeKind string

const (
	ChangePropertyAdded     ChangeKind = "property_added"
	ChangePropertyRemoved   ChangeKind = "property_removed"
	ChangeTypeChanged       ChangeKind = "type_changed"
	ChangeConstraintChanged ChangeKind = "constraint_changed"
	ChangeRequiredChanged   ChangeKind = "required_changed"
	ChangeEnumChanged       ChangeKind = "enum_changed"
)

// SchemaChange records one structural difference between two canonicalized
// schemas, at a property path rooted at "" for the schema itself.
type SchemaChange struct {
	Kind     ChangeKind
	Path     string
	Breaking bool
	Detail   string
}

// DiffOptions exposes the two open-question policy switches §9 leaves to
// the caller: whether an optional-parameter addition or an enum value
// addition counts as breaking. Both default to false (not breaking),
// matching the committed "(current policy: no)" decisions.
type DiffOptions struct {
	OptionalAdditionBreaking bool
	EnumAdditionBreaking     bool
}

// Compare walks before/after (already-canonicalized schemas, as returned by
// Canonicalize) and produces the ordered list of SchemaChanges between
// them.
func Compare(before, after any, opts DiffOptions) []SchemaChange {
	var changes []SchemaChange
	compareNode("", before, after, opts, &changes)
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Path != changes[j].Path {
			return changes[i].Path < changes[j].Path
		}
		return changes[i].Kind < changes[j].Kind
	})
	return changes
}

func compareNode(path string, before, after any, opts DiffOptions, changes *[]SchemaChange) {
	beforeObj, beforeIsObj := before.(map[string]any)
	afterObj, afterIsObj := after.(map[string]any)

	if beforeIsObj && afterIsObj {
		compareObjects(path, beforeObj, afterObj, opts, changes)
		return
	}

	if kindOf(before) != kindOf(after) {
		*changes = append(*changes, SchemaChange{
			Kind:     ChangeTypeChanged,
			Path:     path,
			Breaking: true,
			Detail:   fmt.Sprintf("type changed from %s to %s", kindOf(before), kindOf(after)),
		})
	}
}

func compareObjects(path string, before, after map[string]any, opts DiffOptions, changes *[]SchemaChange) {
	compareType(path, before, after, changes)
	compareProperties(path, before, after, opts, changes)
	compareRequired(path, before, after, changes)
	compareEnum(path, before, after, opts, changes)
	compareConstraints(path, before, after, changes)
}

func compareType(path string, before, after map[string]any, changes *[]SchemaChange) {
	bt, aok1 := before["type"]
	at, aok2 := after["type"]
	if !aok1 && !aok2 {
		return
	}
	if fmt.Sprint(bt) != fmt.Sprint(at) {
		*changes = append(*changes, SchemaChange{
			Kind:     ChangeTypeChanged,
			Path:     path,
			Breaking: true,
			Detail:   fmt.Sprintf("type changed from %v to %v", bt, at),
		})
	}
}

func compareProperties(path string, before, after map[string]any, opts DiffOptions, changes *[]SchemaChange) {
	beforeProps, _ := before["properties"].(map[string]any)
	afterProps, _ := after["properties"].(map[string]any)
	if beforeProps == nil && afterProps == nil {
		return
	}

	requiredAfter := stringSet(after["required"])

	for name, beforeSchema := range beforeProps {
		childPath := joinPath(path, name)
		afterSchema, stillPresent := afterProps[name]
		if !stillPresent {
			*changes = append(*changes, SchemaChange{
				Kind:     ChangePropertyRemoved,
				Path:     childPath,
				Breaking: true,
				Detail:   "property removed",
			})
			continue
		}
		compareNode(childPath, beforeSchema, afterSchema, opts, changes)
	}

	for name := range afterProps {
		if _, existed := beforeProps[name]; existed {
			continue
		}
		childPath := joinPath(path, name)
		breaking := requiredAfter[name] || opts.OptionalAdditionBreaking
		*changes = append(*changes, SchemaChange{
			Kind:     ChangePropertyAdded,
			Path:     childPath,
			Breaking: breaking,
			Detail:   "property added",
		})
	}
}

func compareRequired(path string, before, after map[string]any, changes *[]SchemaChange) {
	beforeSet := stringSet(before["required"])
	afterSet := stringSet(after["required"])
	if len(beforeSet) == 0 && len(afterSet) == 0 {
		return
	}

	var added, removed []string
	for name := range afterSet {
		if !beforeSet[name] {
			added = append(added, name)
		}
	}
	for name := range beforeSet {
		if !afterSet[name] {
			removed = append(removed, name)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	sort.Strings(added)
	sort.Strings(removed)
	// A field newly added to required is breaking (existing callers that
	// omitted it now fail); a field removed from required only relaxes the
	// contract and is not breaking.
	*changes = append(*changes, SchemaChange{
		Kind:     ChangeRequiredChanged,
		Path:     path,
		Breaking: len(added) > 0,
		Detail:   fmt.Sprintf("required added=%v removed=%v", added, removed),
	})
}

func compareEnum(path string, before, after map[string]any, opts DiffOptions, changes *[]SchemaChange) {
	beforeEnum, beforeOK := before["enum"].([]any)
	afterEnum, afterOK := after["enum"].([]any)
	if !beforeOK && !afterOK {
		return
	}

	beforeSet := encodingSet(beforeEnum)
	afterSet := encodingSet(afterEnum)

	removed := false
	added := false
	for k := range beforeSet {
		if !afterSet[k] {
			removed = true
		}
	}
	for k := range afterSet {
		if !beforeSet[k] {
			added = true
		}
	}
	if !removed && !added {
		return
	}
	breaking := removed || (added && opts.EnumAdditionBreaking)
	*changes = append(*changes, SchemaChange{
		Kind:     ChangeEnumChanged,
		Path:     path,
		Breaking: breaking,
		Detail:   fmt.Sprintf("enum added=%v removed=%v", added, removed),
	})
}

// tighteningNumeric and tighteningLength are checked per §4.3's
// constraint_changed breaking rules: a numeric bound tightening or a string
// length bound tightening is breaking, loosening is not.
var tighteningNumeric = map[string]func(before, after float64) bool{
	"minimum": func(b, a float64) bool { return a > b },
	"maximum": func(b, a float64) bool { return a < b },
}

var tighteningLength = map[string]func(before, after float64) bool{
	"minLength": func(b, a float64) bool { return a > b },
	"maxLength": func(b, a float64) bool { return a < b },
}

func compareConstraints(path string, before, after map[string]any, changes *[]SchemaChange) {
	for key, tightens := range tighteningNumeric {
		compareNumericConstraint(path, key, before, after, tightens, changes)
	}
	for key, tightens := range tighteningLength {
		compareNumericConstraint(path, key, before, after, tightens, changes)
	}
	compareAdditionalProperties(path, before, after, changes)
	compareDependentRequired(path, before, after, changes)
	compareVariantSet(path, "oneOf", before, after, changes)
	compareVariantSet(path, "anyOf", before, after, changes)
}

func compareNumericConstraint(path, key string, before, after map[string]any, tightens func(b, a float64) bool, changes *[]SchemaChange) {
	bv, bok := numericValue(before[key])
	av, aok := numericValue(after[key])
	if !bok || !aok {
		return
	}
	if bv == av {
		return
	}
	*changes = append(*changes, SchemaChange{
		Kind:     ChangeConstraintChanged,
		Path:     path,
		Breaking: tightens(bv, av),
		Detail:   fmt.Sprintf("%s changed from %v to %v", key, bv, av),
	})
}

func compareAdditionalProperties(path string, before, after map[string]any, changes *[]SchemaChange) {
	bv, bok := before["additionalProperties"].(bool)
	av, aok := after["additionalProperties"].(bool)
	if !bok || !aok {
		return
	}
	if bv == av {
		return
	}
	*changes = append(*changes, SchemaChange{
		Kind:     ChangeConstraintChanged,
		Path:     path,
		Breaking: bv && !av,
		Detail:   fmt.Sprintf("additionalProperties changed from %v to %v", bv, av),
	})
}

func compareDependentRequired(path string, before, after map[string]any, changes *[]SchemaChange) {
	beforeMap, _ := before["dependentRequired"].(map[string]any)
	afterMap, _ := after["dependentRequired"].(map[string]any)
	if beforeMap == nil && afterMap == nil {
		return
	}
	expanded := false
	for key, afterDeps := range afterMap {
		beforeDeps, existed := beforeMap[key]
		if !existed {
			expanded = true
			continue
		}
		if len(stringSet(afterDeps)) > len(stringSet(beforeDeps)) {
			expanded = true
		}
	}
	if !expanded {
		return
	}
	*changes = append(*changes, SchemaChange{
		Kind:     ChangeConstraintChanged,
		Path:     path,
		Breaking: true,
		Detail:   "dependentRequired expanded",
	})
}

func compareVariantSet(path, key string, before, after map[string]any, changes *[]SchemaChange) {
	beforeVariants, _ := before[key].([]any)
	afterVariants, _ := after[key].([]any)
	if beforeVariants == nil && afterVariants == nil {
		return
	}
	if len(afterVariants) > len(beforeVariants) {
		*changes = append(*changes, SchemaChange{
			Kind:     ChangeConstraintChanged,
			Path:     path,
			Breaking: true,
			Detail:   fmt.Sprintf("%s gained a new variant", key),
		})
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, int:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func stringSet(v any) map[string]bool {
	arr, _ := v.([]any)
	set := make(map[string]bool, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			set[s] = true
		}
	}
	return set
}

func encodingSet(arr []any) map[string]bool {
	set := make(map[string]bool, len(arr))
	for _, item := range arr {
		raw, _ := json.Marshal(item)
		set[string(raw)] = true
	}
	return set
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
