package games

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/telemetry"
	"benchsync/lib/htmlutil"
	"benchsync/lib/textutil"
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extract_near_miss = "extract.near-miss"
)

const nearMissThreshold = 0.9

var fieldNames = func() []string {
	out := make([]string, len(benchmarks.Fields))
	for i, f := range benchmarks.Fields {
		out[i] = f.String()
	}
	return out
}()

// Extractor reads the benchmark table of an athlete profile, it implements fetch.Extractor.
type Extractor struct {
	tel telemetry.API
}

func NewExtractor(tel telemetry.API) Extractor {
	return Extractor{tel: telemetry.NewScopedAPI("games_extractor", tel)}
}

// Extract returns every "label: value" row found in the stats tables of a profile. A profile
// without any stats table yields an empty map.
//
// Labels that look like a benchmark without matching it exactly are reported, since that usually
// means the page changed its wording.
func (e Extractor) Extract(body []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	out := map[string]string{}
	doc.Find("div.stats-section table.stats tbody tr").Each(func(_ int, row *goquery.Selection) {
		label, ok := htmlutil.SelectionText(row.Find("th"))
		if !ok {
			return
		}
		value, ok := htmlutil.SelectionText(row.Find("td"))
		if !ok {
			return
		}
		out[label] = value

		if _, known := benchmarks.FieldByName(label); known {
			return
		}
		match, similarity, near := textutil.Closest(label, fieldNames, nearMissThreshold)
		if near && !strings.EqualFold(match, label) {
			e.tel.ReportWarning(report_extract_near_miss, label, match, similarity)
		}
	})

	return out, nil
}
