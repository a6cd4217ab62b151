package merge

import (
	"reflect"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

// FieldComparison describes one mergeable field across the two records.
type FieldComparison struct {
	ExistingValue any    `json:"existing_value,omitempty"`
	FetchedValue  any    `json:"fetched_value,omitempty"`
	Field         string `json:"field"`
	HasExisting   bool   `json:"has_existing"`
	HasFetched    bool   `json:"has_fetched"`
	Conflict      bool   `json:"conflict"`
}

// Preview summarizes what a merge would do without doing it.
type Preview struct {
	Fields    []FieldComparison `json:"fields"`
	Total     int               `json:"total"`
	Conflicts int               `json:"conflicts"`
	Fillable  int               `json:"fillable"`
	Matched   int               `json:"matched"`
}

// PreviewMerge compares existing and fetched field by field. Bookkeeping and
// immutable fields are left out - they never merge, so previewing them would
// only be noise. Neither input is modified.
func PreviewMerge[T any](existing, fetched *T) (*Preview, error) {
	if existing == nil || fetched == nil {
		return nil, domainerrors.Validation("preview requires both records")
	}

	ev := reflect.ValueOf(existing).Elem()
	fv := reflect.ValueOf(fetched).Elem()
	if ev.Kind() != reflect.Struct {
		return nil, domainerrors.Validation("preview requires a struct type")
	}

	preview := &Preview{}
	previewStruct(ev, fv, preview)
	return preview, nil
}

func previewStruct(existing, fetched reflect.Value, preview *Preview) {
	t := existing.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("merge") == "" {
			previewStruct(existing.Field(i), fetched.Field(i), preview)
			continue
		}
		tag := field.Tag.Get("merge")
		if tag == "-" || tag == "immutable" {
			continue
		}

		ev, fv := existing.Field(i), fetched.Field(i)
		cmp := FieldComparison{
			Field:       jsonFieldName(field),
			HasExisting: !isEmpty(ev),
			HasFetched:  !isEmpty(fv),
		}
		if cmp.HasExisting {
			cmp.ExistingValue = ev.Interface()
		}
		if cmp.HasFetched {
			cmp.FetchedValue = fv.Interface()
		}

		equal := reflect.DeepEqual(ev.Interface(), fv.Interface())
		switch {
		case equal:
			preview.Matched++
		case cmp.HasExisting && cmp.HasFetched:
			cmp.Conflict = true
			preview.Conflicts++
		case !cmp.HasExisting && cmp.HasFetched:
			preview.Fillable++
		}

		preview.Total++
		preview.Fields = append(preview.Fields, cmp)
	}
}
