package benchmarks

// MergeReport summarizes a Merge.
type MergeReport struct {
	// Applied is the number of records whose fields were overwritten.
	Applied int
	// Skipped is the number of PartialFailure outcomes, their records were left untouched.
	Skipped int
	// Unknown lists outcome ids that are not in the store.
	Unknown []string
}

// Merge folds outcomes into the store. Success and Exhausted outcomes overwrite every field they carry
// a non-Unset value for, PartialFailure outcomes change nothing. Merge only depends on each outcome's own
// id so the order of outcomes does not matter, and merging the same outcome twice is a no-op.
func (s *Store) Merge(outcomes map[string]Outcome) MergeReport {
	var report MergeReport
	for id, outcome := range outcomes {
		if outcome.EntityID != "" {
			id = outcome.EntityID
		}
		rec, ok := s.Get(id)
		if !ok {
			report.Unknown = append(report.Unknown, id)
			continue
		}

		switch outcome.Kind {
		case Success, Exhausted:
			for _, f := range Fields {
				if outcome.Fields[f].Set() {
					rec.Fields[f] = outcome.Fields[f]
				}
			}
			report.Applied++
		default:
			report.Skipped++
		}
	}
	return report
}
