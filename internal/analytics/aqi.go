package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

// AQIBucket counts hours in one AQI category.
type AQIBucket struct {
	Category string  `json:"category"`
	Hours    int     `json:"hours"`
	Percent  float64 `json:"percent"`
}

// AQIYear is the category breakdown of one year.
type AQIYear struct {
	Year    int         `json:"year"`
	Buckets []AQIBucket `json:"buckets"`
}

// AQIReport is the PM2.5 AQI category distribution.
type AQIReport struct {
	Buckets []AQIBucket `json:"buckets"`
	Yearly  []AQIYear   `json:"yearly"`

	// UnhealthyPct covers unhealthy, very unhealthy, and hazardous hours.
	UnhealthyPct float64 `json:"unhealthy_pct"`
	// GoodPct covers good and moderate hours.
	GoodPct float64 `json:"good_pct"`
}

// WHOStation compares a station's mean PM2.5 to the WHO guideline.
type WHOStation struct {
	Station  string  `json:"station"`
	MeanPM25 float64 `json:"mean_pm25"`
	Ratio    float64 `json:"ratio"`
	Exceeds  bool    `json:"exceeds"`
}

// AQIDistribution classifies every hour with a valid PM2.5 reading.
// Percentages are rounded to one decimal.
func AQIDistribution(rows []domain.Observation) AQIReport {
	total := make(map[string]int)
	perYear := make(map[int]map[string]int)
	for _, o := range rows {
		v := o.Value(domain.PM25)
		if math.IsNaN(v) {
			continue
		}
		cat := domain.ClassifyPM25(v)
		total[cat]++
		if perYear[o.Year] == nil {
			perYear[o.Year] = make(map[string]int)
		}
		perYear[o.Year][cat]++
	}

	report := AQIReport{Buckets: buckets(total)}
	for _, b := range report.Buckets {
		switch b.Category {
		case domain.AQIUnhealthy, domain.AQIVeryUnhealthy, domain.AQIHazardous:
			report.UnhealthyPct += b.Percent
		case domain.AQIGood, domain.AQIModerate:
			report.GoodPct += b.Percent
		}
	}
	report.UnhealthyPct = round1(report.UnhealthyPct)
	report.GoodPct = round1(report.GoodPct)

	for year, counts := range perYear {
		report.Yearly = append(report.Yearly, AQIYear{Year: year, Buckets: buckets(counts)})
	}
	slices.SortFunc(report.Yearly, func(a, b AQIYear) int { return cmp.Compare(a.Year, b.Year) })
	return report
}

func buckets(counts map[string]int) []AQIBucket {
	sum := 0
	for _, n := range counts {
		sum += n
	}
	out := make([]AQIBucket, 0, len(counts))
	for _, cat := range domain.AQICategories() {
		n := counts[cat]
		if n == 0 {
			continue
		}
		out = append(out, AQIBucket{Category: cat, Hours: n, Percent: round1(100 * float64(n) / float64(sum))})
	}
	return out
}

// WHOExceedance ranks stations by mean PM2.5, cleanest first.
func WHOExceedance(rows []domain.Observation) []WHOStation {
	var out []WHOStation
	for _, g := range groupBy(rows, func(o domain.Observation) string { return o.Station }) {
		m, ok := means(g.rows, []domain.Column{domain.PM25})[domain.PM25.String()]
		if !ok {
			continue
		}
		out = append(out, WHOStation{
			Station:  g.key,
			MeanPM25: m,
			Ratio:    m / domain.WHOGuidelinePM25,
			Exceeds:  m > domain.WHOGuidelinePM25,
		})
	}
	slices.SortFunc(out, func(a, b WHOStation) int { return cmp.Compare(a.MeanPM25, b.MeanPM25) })
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
