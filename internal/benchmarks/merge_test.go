package benchmarks

import (
	"benchsync/internal/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func franOnly(id string) Outcome {
	return SuccessOutcome(id, map[Field]string{Fran: "3:45"})
}

func TestMergeOverwritesOnlyTargetRecord(t *testing.T) {
	s := mustStore(t, row("1", "a"), row("2", "b"), row("3", "c", "", "", "", "", "", "100"))
	before := s.Table()

	report := s.Merge(map[string]Outcome{"2": franOnly("2")})
	require.Equal(t, MergeReport{Applied: 1}, report)

	rec, _ := s.Get("2")
	require.Equal(t, PresentValue("3:45"), rec.Fields[Fran])
	for _, f := range Fields {
		if f != Fran {
			require.Equal(t, MissingValue(), rec.Fields[f], f.String())
		}
	}

	after := s.Table()
	require.Equal(t, before.Rows[0], after.Rows[0])
	require.Equal(t, before.Rows[2], after.Rows[2])
	require.Equal(t, before.Rows[1][:2], after.Rows[1][:2])
}

func TestMergeIsIdempotent(t *testing.T) {
	once := mustStore(t, row("1", "a"), row("2", "b"))
	twice := mustStore(t, row("1", "a"), row("2", "b"))

	outcomes := map[string]Outcome{"1": franOnly("1"), "2": ExhaustedOutcome("2")}
	once.Merge(outcomes)
	twice.Merge(outcomes)
	twice.Merge(outcomes)

	require.Equal(t, once.Table(), twice.Table())
}

func TestMergeOverwritesSetValues(t *testing.T) {
	s := mustStore(t, row("1", "a", "error", "error", "error", "error", "error", "error"))
	s.Merge(map[string]Outcome{"1": franOnly("1")})

	rec, _ := s.Get("1")
	require.Equal(t, PresentValue("3:45"), rec.Fields[Fran])
	require.Equal(t, MissingValue(), rec.Fields[BackSquat])
}

func TestScrapedSentinelsSurviveReload(t *testing.T) {
	testCases := []struct {
		text     string
		expected Value
	}{
		{text: "", expected: MissingValue()},
		{text: "NONE", expected: MissingValue()},
		{text: "--", expected: MissingValue()},
		{text: "error", expected: MissingValue()},
		{text: "315 lb", expected: PresentValue("315 lb")},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			s := mustStore(t, row("1", "a"))
			s.Merge(map[string]Outcome{"1": SuccessOutcome("1", map[Field]string{BackSquat: tc.text})})

			reloaded, err := NewStore(s.Table(), telemetry.NewRecorder())
			require.NoError(t, err)
			rec, ok := reloaded.Get("1")
			require.True(t, ok)
			require.Equal(t, tc.expected, rec.Fields[BackSquat])
			require.False(t, rec.Pending())
		})
	}
}

func TestMergePartialFailureLeavesRecordPending(t *testing.T) {
	s := mustStore(t, row("1", "a"))

	report := s.Merge(map[string]Outcome{"1": PartialFailureOutcome("1", 500)})
	require.Equal(t, 1, report.Skipped)

	rec, _ := s.Get("1")
	require.True(t, rec.Pending())
	require.Equal(t, []string{"1"}, s.PendingIDs(0))
}

func TestMergeExhaustedMarksErrored(t *testing.T) {
	s := mustStore(t, row("1", "a"))
	s.Merge(map[string]Outcome{"1": ExhaustedOutcome("1")})

	rec, _ := s.Get("1")
	for _, f := range Fields {
		require.Equal(t, ErroredValue(), rec.Fields[f])
	}
	require.Empty(t, s.PendingIDs(0))
	require.Equal(t, []string{"1", "a", "error", "error", "error", "error", "error", "error"}, s.Table().Rows[0])
}

func TestMergeReportsUnknownIds(t *testing.T) {
	s := mustStore(t, row("1", "a"))
	report := s.Merge(map[string]Outcome{"99": franOnly("99")})
	require.Equal(t, []string{"99"}, report.Unknown)
	require.Equal(t, 0, report.Applied)
}
