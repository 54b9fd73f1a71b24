package benchmarks

import "strings"

// IDColumn is the header of the column holding the unique entity id.
const IDColumn = "competitorId"

// Field indexes into Record.Fields.
type Field int

const (
	BackSquat Field = iota
	CleanAndJerk
	Deadlift
	Fran
	Run5k
	Snatch

	FieldCount = 6
)

var fieldNames = [FieldCount]string{
	"Back Squat",
	"Clean and Jerk",
	"Deadlift",
	"Fran",
	"Run 5k",
	"Snatch",
}

// Fields lists every benchmark field in column order.
var Fields = [FieldCount]Field{BackSquat, CleanAndJerk, Deadlift, Fran, Run5k, Snatch}

func (f Field) String() string {
	if f < 0 || int(f) >= FieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// FieldByName looks a field up by its column name, ignoring case and surrounding whitespace.
func FieldByName(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range Fields {
		if strings.EqualFold(fieldNames[f], name) {
			return f, true
		}
	}
	return -1, false
}

// State is the lifecycle state of a single benchmark cell.
type State uint8

const (
	// Unset means the field was never resolved, an empty cell.
	Unset State = iota
	// Present holds a literal value scraped from a profile.
	Present
	// Missing means the profile was parsed but did not list the benchmark.
	Missing
	// Errored means every attempt to fetch the profile failed.
	Errored
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Present:
		return "present"
	case Missing:
		return "missing"
	case Errored:
		return "errored"
	}
	return "unknown"
}

const (
	MissingSentinel = "--"
	ErroredSentinel = "error"
	// legacyUnset is a placeholder older exports used for empty cells.
	legacyUnset = "NONE"
)

// Value is the typed content of a benchmark cell.
type Value struct {
	State State
	Text  string
}

func PresentValue(text string) Value {
	return Value{State: Present, Text: text}
}

func MissingValue() Value {
	return Value{State: Missing}
}

func ErroredValue() Value {
	return Value{State: Errored}
}

// ScrapedValue wraps text read from a profile. Text that would not decode back to itself, such as an
// empty cell or one of the sentinels, is treated as Missing.
func ScrapedValue(text string) Value {
	v := PresentValue(text)
	if DecodeValue(v.Encode()) != v {
		return MissingValue()
	}
	return v
}

// Encode renders the value as it is stored in a table cell.
func (v Value) Encode() string {
	switch v.State {
	case Present:
		return v.Text
	case Missing:
		return MissingSentinel
	case Errored:
		return ErroredSentinel
	}
	return ""
}

// DecodeValue parses a table cell.
func DecodeValue(cell string) Value {
	switch cell {
	case "", legacyUnset:
		return Value{}
	case MissingSentinel:
		return MissingValue()
	case ErroredSentinel:
		return ErroredValue()
	}
	return PresentValue(cell)
}

// Set reports whether the value has left the Unset state.
func (v Value) Set() bool {
	return v.State != Unset
}
