package merge

// Strategy selects which side wins for regular fields during a merge.
type Strategy string

// Merge strategies.
const (
	// KeepExisting keeps every local value; fetched data only fills
	// additive fields (external IDs).
	KeepExisting Strategy = "keep-existing"
	// KeepFetched takes every fetched value; union-tagged collections
	// still preserve local additions.
	KeepFetched Strategy = "keep-fetched"
	// FillEmpty copies fetched values only into fields the local record
	// left empty.
	FillEmpty Strategy = "fill-empty"
	// Selective resolves each field by an explicit per-field action;
	// fields without an action keep the existing value.
	Selective Strategy = "selective"
)

// Valid reports whether the strategy is one of the known values.
func (s Strategy) Valid() bool {
	switch s {
	case KeepExisting, KeepFetched, FillEmpty, Selective:
		return true
	}
	return false
}

// FieldAction is the per-field resolution used by the Selective strategy.
// Keys into the action map are JSON field names.
type FieldAction string

// Field actions.
const (
	ActionKeepExisting FieldAction = "keep-existing"
	ActionCopyFetched  FieldAction = "copy-fetched"
	ActionApplyIfEmpty FieldAction = "apply-if-empty"
)

// Valid reports whether the action is one of the known values.
func (a FieldAction) Valid() bool {
	switch a {
	case ActionKeepExisting, ActionCopyFetched, ActionApplyIfEmpty:
		return true
	}
	return false
}
