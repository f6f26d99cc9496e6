// internal/resolver/format.go
package resolver

import (
	"sync"
	"time"

	"github.com/solatis/gridview/internal/types"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders a raw value as its display string for a field type.
// The display string is the comparison key for filter membership and group
// boundaries, so implementations must be deterministic.
type Formatter interface {
	Format(fieldType types.FieldType, value any) string
}

const (
	DefaultDateLayout     = "02/01/2006"
	DefaultDateTimeLayout = "02/01/2006 15:04"
)

// DisplayFormatter is the locale-aware default Formatter.
// Safe for concurrent use.
type DisplayFormatter struct {
	tag            language.Tag
	loc            *time.Location
	dateLayout     string
	dateTimeLayout string
	trueLabel      string
	falseLabel     string

	mu      sync.Mutex
	printer *message.Printer
}

// FormatOption customizes a DisplayFormatter.
type FormatOption func(*DisplayFormatter)

// WithLocation sets the zone dates are rendered and parsed in.
func WithLocation(loc *time.Location) FormatOption {
	return func(f *DisplayFormatter) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// WithDateLayouts overrides the Go time layouts for date and datetime fields.
func WithDateLayouts(date, dateTime string) FormatOption {
	return func(f *DisplayFormatter) {
		if date != "" {
			f.dateLayout = date
		}
		if dateTime != "" {
			f.dateTimeLayout = dateTime
		}
	}
}

// WithBooleanLabels overrides the labels rendered for true and false.
func WithBooleanLabels(trueLabel, falseLabel string) FormatOption {
	return func(f *DisplayFormatter) {
		if trueLabel != "" {
			f.trueLabel = trueLabel
		}
		if falseLabel != "" {
			f.falseLabel = falseLabel
		}
	}
}

// NewDisplayFormatter creates a formatter for the given locale.
// French locales default to "Vrai"/"Faux", others to "Yes"/"No".
func NewDisplayFormatter(tag language.Tag, opts ...FormatOption) *DisplayFormatter {
	f := &DisplayFormatter{
		tag:            tag,
		loc:            time.UTC,
		dateLayout:     DefaultDateLayout,
		dateTimeLayout: DefaultDateTimeLayout,
		trueLabel:      "Yes",
		falseLabel:     "No",
		printer:        message.NewPrinter(tag),
	}
	if base, _ := tag.Base(); base.String() == "fr" {
		f.trueLabel = "Vrai"
		f.falseLabel = "Faux"
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Location returns the zone dates are rendered in.
func (f *DisplayFormatter) Location() *time.Location {
	return f.loc
}

// Tag returns the formatter's locale.
func (f *DisplayFormatter) Tag() language.Tag {
	return f.tag
}

// Format implements Formatter. Missing values render as "". Values that
// cannot be read as the declared type fall back to their text form.
func (f *DisplayFormatter) Format(fieldType types.FieldType, value any) string {
	ft := fieldType.Normalize()
	coerced, err := Coerce(value, ft, f.loc)
	if err != nil {
		return f.text(value)
	}
	if coerced.IsNull {
		return ""
	}

	switch ft {
	case types.FieldTypeDate:
		return coerced.Value.(time.Time).In(f.loc).Format(f.dateLayout)
	case types.FieldTypeDateTime:
		return coerced.Value.(time.Time).In(f.loc).Format(f.dateTimeLayout)
	case types.FieldTypeBoolean:
		if coerced.Value.(bool) {
			return f.trueLabel
		}
		return f.falseLabel
	case types.FieldTypeNumber:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.printer.Sprint(coerced.Value.(float64))
	default:
		return coerced.Value.(string)
	}
}

func (f *DisplayFormatter) text(value any) string {
	res, err := coerceText(value)
	if err != nil || res.IsNull {
		return ""
	}
	return res.Value.(string)
}
