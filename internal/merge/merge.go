// Package merge implements field-level conflict resolution between a local
// record and its fetched remote counterpart.
//
// The engine is pure and deterministic: no I/O, no clocks, same inputs same
// output. It is generic over any entity struct; field behavior is declared
// with `merge` struct tags on the domain types rather than per-entity switch
// statements:
//
//	merge:"immutable"  always restored from the existing record (ID, CreatedAt)
//	merge:"-"          local sync bookkeeping, never merged
//	merge:"union"      slice merged by set union when fetched data wins
//	merge:"extids"     map shallow-unioned across both sides, every strategy
//
// A field is empty when it is a nil pointer, an empty string, or an empty
// slice or map. Zero numbers and false are data, not absence - optional
// numerics in the domain are pointer fields for exactly this reason. A field
// is only ever written from a non-empty source: an absent fetched value never
// erases local data, under any strategy.
package merge

import (
	"fmt"
	"reflect"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// dirtyMarker is implemented by domain types that track local sync state.
// Every merged result is marked dirty so the next sync cycle pushes it.
type dirtyMarker interface {
	MarkDirty()
}

// Merge resolves existing against fetched and returns a new record; neither
// input is modified. fieldActions is only consulted by the Selective strategy
// and may be nil otherwise.
//
// A nil existing means the record is new locally and the fetched side is
// returned as-is (cloned); a nil fetched returns a clone of existing.
func Merge[T any](existing, fetched *T, strategy Strategy, fieldActions map[string]FieldAction) (*T, error) {
	if !strategy.Valid() {
		return nil, domainerrors.Validation(fmt.Sprintf("unknown merge strategy %q", strategy))
	}
	for field, action := range fieldActions {
		if !action.Valid() {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown field action %q for %q", action, field))
		}
	}

	if existing == nil && fetched == nil {
		return nil, domainerrors.Validation("merge requires at least one record")
	}
	if existing == nil {
		result := *fetched
		markDirty(&result)
		return &result, nil
	}
	if fetched == nil {
		result := *existing
		markDirty(&result)
		return &result, nil
	}

	result := new(T)
	rv := reflect.ValueOf(result).Elem()
	if rv.Kind() != reflect.Struct {
		return nil, domainerrors.Validation("merge requires a struct type")
	}

	mergeStruct(rv, reflect.ValueOf(existing).Elem(), reflect.ValueOf(fetched).Elem(), strategy, fieldActions)
	markDirty(result)
	return result, nil
}

// MergeValidated merges and then gates the result through shape validation.
// Returns ErrMergeRejected when the merged record would be invalid; callers
// keep their existing record in that case.
func MergeValidated[T any](v *validation.Validator, existing, fetched *T, strategy Strategy, fieldActions map[string]FieldAction) (*T, error) {
	result, err := Merge(existing, fetched, strategy, fieldActions)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(result); err != nil {
		return nil, domainerrors.ErrMergeRejected.WithCause(err)
	}
	return result, nil
}

// mergeStruct fills result field by field. Embedded structs without their own
// merge tag are walked recursively so Syncable's tags apply.
func mergeStruct(result, existing, fetched reflect.Value, strategy Strategy, actions map[string]FieldAction) {
	t := result.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("merge") == "" {
			mergeStruct(result.Field(i), existing.Field(i), fetched.Field(i), strategy, actions)
			continue
		}

		rv, ev, fv := result.Field(i), existing.Field(i), fetched.Field(i)

		switch field.Tag.Get("merge") {
		case "-", "immutable":
			rv.Set(ev)
		case "union":
			// Union fields are never replaced outright: when the fetched
			// side wins, local additions still survive.
			if fetchedWins(strategy, actions, jsonFieldName(field), ev, fv) {
				rv.Set(unionSlices(ev, fv))
			} else {
				rv.Set(ev)
			}
		case "extids":
			rv.Set(unionMaps(ev, fv))
		default:
			if fetchedWins(strategy, actions, jsonFieldName(field), ev, fv) {
				rv.Set(fv)
			} else {
				rv.Set(ev)
			}
		}
	}
}

// fetchedWins decides whether the fetched side supplies a regular field.
// An empty fetched value never wins: keep-fetched and copy-fetched overwrite
// only when there is actual fetched data to copy.
func fetchedWins(strategy Strategy, actions map[string]FieldAction, field string, existing, fetched reflect.Value) bool {
	if isEmpty(fetched) {
		return false
	}
	switch strategy {
	case KeepFetched:
		return true
	case FillEmpty:
		return isEmpty(existing)
	case Selective:
		switch actions[field] {
		case ActionCopyFetched:
			return true
		case ActionApplyIfEmpty:
			return isEmpty(existing)
		}
	}
	return false
}

// isEmpty implements the engine's notion of field absence: nil pointer,
// empty string, empty slice or map. Zero numbers and false never count.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.String, reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	return false
}

// unionSlices returns existing's elements in order, followed by fetched
// elements not already present. Always a fresh slice.
func unionSlices(existing, fetched reflect.Value) reflect.Value {
	out := reflect.MakeSlice(existing.Type(), 0, existing.Len()+fetched.Len())
	out = reflect.AppendSlice(out, existing)

	for i := range fetched.Len() {
		candidate := fetched.Index(i)
		if !sliceContains(out, candidate) {
			out = reflect.Append(out, candidate)
		}
	}
	if out.Len() == 0 {
		return reflect.Zero(existing.Type())
	}
	return out
}

func sliceContains(s, candidate reflect.Value) bool {
	for i := range s.Len() {
		if reflect.DeepEqual(s.Index(i).Interface(), candidate.Interface()) {
			return true
		}
	}
	return false
}

// unionMaps starts from existing and adds fetched keys that are absent.
// Existing values win key conflicts - additive metadata never regresses a
// local correction.
func unionMaps(existing, fetched reflect.Value) reflect.Value {
	if existing.Len() == 0 && fetched.Len() == 0 {
		return reflect.Zero(existing.Type())
	}

	out := reflect.MakeMapWithSize(existing.Type(), existing.Len()+fetched.Len())
	for _, key := range existing.MapKeys() {
		out.SetMapIndex(key, existing.MapIndex(key))
	}
	for _, key := range fetched.MapKeys() {
		if !out.MapIndex(key).IsValid() {
			out.SetMapIndex(key, fetched.MapIndex(key))
		}
	}
	return out
}

// jsonFieldName returns the field's JSON name, falling back to the Go name.
func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i := range len(tag) {
		if tag[i] == ',' {
			return tag[:i]
		}
	}
	return tag
}

// markDirty flags the merged result for propagation on the next sync cycle.
func markDirty(result any) {
	if d, ok := result.(dirtyMarker); ok {
		d.MarkDirty()
	}
}
