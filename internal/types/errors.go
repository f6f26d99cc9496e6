package types

import "errors"

// Sentinel errors for gridview operations.
var (
	// ErrFieldNotFound indicates a field path could not be resolved on a record.
	ErrFieldNotFound = errors.New("field not found")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrEmptyPath indicates a blank field path.
	ErrEmptyPath = errors.New("field path is empty")

	// ErrCoercionFailed indicates a value cannot be read as the field's declared type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrUnknownField indicates a spec references a field missing from the view.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownFieldType indicates an unsupported field type tag.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrNotSortable indicates a sort command on a field without the sortable flag.
	ErrNotSortable = errors.New("field is not sortable")

	// ErrNotFilterable indicates a filter command on a field without the filterable flag.
	ErrNotFilterable = errors.New("field is not filterable")

	// ErrNotGroupable indicates a group command on a field without the groupable flag.
	ErrNotGroupable = errors.New("field is not groupable")

	// ErrTooManyGroupLevels indicates a view nests more than MaxGroupLevels groups.
	ErrTooManyGroupLevels = errors.New("too many group levels")

	// ErrTooManyFilterValues indicates a filter exceeds MaxFilterValues.
	ErrTooManyFilterValues = errors.New("filter has too many values")

	// ErrDuplicateSpec indicates the same field path appears twice in one spec list.
	ErrDuplicateSpec = errors.New("duplicate field in spec list")

	// ErrRecordNotFound indicates no record carries the requested key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrViewNotFound indicates no view exists with the requested identifier.
	ErrViewNotFound = errors.New("view not found")
)
