package benchmarks

// OutcomeKind classifies the result of fetching one entity.
type OutcomeKind int

const (
	// Success means the profile was parsed, every field is Present or Missing.
	Success OutcomeKind = iota + 1
	// PartialFailure means the remote answered with a status that is neither OK nor rate limiting,
	// no field is set and the record stays pending.
	PartialFailure
	// Exhausted means every retry failed, every field is Errored.
	Exhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case PartialFailure:
		return "partial_failure"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Outcome is the classified result of a fetch task.
type Outcome struct {
	EntityID string
	Kind     OutcomeKind
	Fields   [FieldCount]Value

	// Attempts is the number of requests sent.
	Attempts int
	// Status is the last HTTP status received, 0 if the last attempt never got a response.
	Status int
	// Err is the last transport or parse error, if any.
	Err error
}

// SuccessOutcome builds a Success outcome from scraped values keyed by field, absent fields become Missing.
// See ScrapedValue for texts that collide with a stored sentinel.
func SuccessOutcome(id string, scraped map[Field]string) Outcome {
	out := Outcome{EntityID: id, Kind: Success}
	for _, f := range Fields {
		text, ok := scraped[f]
		if !ok {
			out.Fields[f] = MissingValue()
			continue
		}
		out.Fields[f] = ScrapedValue(text)
	}
	return out
}

// ExhaustedOutcome builds an Exhausted outcome, every field is Errored.
func ExhaustedOutcome(id string) Outcome {
	out := Outcome{EntityID: id, Kind: Exhausted}
	for _, f := range Fields {
		out.Fields[f] = ErroredValue()
	}
	return out
}

// PartialFailureOutcome builds a PartialFailure outcome for the given status.
func PartialFailureOutcome(id string, status int) Outcome {
	return Outcome{EntityID: id, Kind: PartialFailure, Status: status}
}
