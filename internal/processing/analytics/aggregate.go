// Package analytics builds the dashboard summary for a set of links.
//
// No per-visit device, browser or location data is collected. The splits
// below are derived from each link's visit counter with fixed ratios, so the
// same input always renders the same charts. Responses carry Synthetic=true.
package analytics

import (
	"time"

	"github.com/IgorGrieder/linkdeck/internal/processing/links"
)

type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type DayBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type Summary struct {
	TotalLinks     int         `json:"totalLinks"`
	TotalClicks    int64       `json:"totalClicks"`
	Devices        []Bucket    `json:"devices"`
	Browsers       []Bucket    `json:"browsers"`
	Locations      []Bucket    `json:"locations"`
	ClicksOverTime []DayBucket `json:"clicksOverTime"`
	Synthetic      bool        `json:"synthetic"`
}

type share struct {
	label   string
	percent int64
}

var (
	deviceShares = []share{
		{"desktop", 60},
		{"mobile", 35},
		{"tablet", 5},
	}
	browserShares = []share{
		{"Chrome", 50},
		{"Firefox", 20},
		{"Safari", 20},
		{"Other", 10},
	}
	countries = []string{
		"United States",
		"United Kingdom",
		"Germany",
		"France",
		"Brazil",
		"India",
		"Canada",
		"Japan",
	}

	// most recent day first
	dailyWeights = []int64{25, 20, 15, 15, 10, 10, 5}
)

// Aggregate sums the per-link splits and spreads the grand total over the
// seven days ending at now (UTC).
func Aggregate(in []links.Link, now time.Time) Summary {
	devices := make([]int64, len(deviceShares))
	browsers := make([]int64, len(browserShares))
	locations := make([]int64, len(countries))

	var total int64
	for _, l := range in {
		visits := max(l.Visits, 0)
		total += visits

		for i, s := range deviceShares {
			devices[i] += roundDiv(visits*s.percent, 100)
		}
		for i, s := range browserShares {
			browsers[i] += roundDiv(visits*s.percent, 100)
		}
		for rank := range countries {
			// visits * 0.3 / (rank+1)
			locations[rank] += roundDiv(visits*3, int64(10*(rank+1)))
		}
	}

	return Summary{
		TotalLinks:     len(in),
		TotalClicks:    total,
		Devices:        sharesToBuckets(deviceShares, devices),
		Browsers:       sharesToBuckets(browserShares, browsers),
		Locations:      labelsToBuckets(countries, locations),
		ClicksOverTime: clicksOverTime(total, now),
		Synthetic:      true,
	}
}

func clicksOverTime(total int64, now time.Time) []DayBucket {
	counts := make([]int64, len(dailyWeights))
	var assigned int64
	for i, w := range dailyWeights {
		counts[i] = total * w / 100
		assigned += counts[i]
	}
	counts[0] += total - assigned

	today := now.UTC().Truncate(24 * time.Hour)
	out := make([]DayBucket, len(counts))
	for i := range counts {
		daysAgo := len(counts) - 1 - i
		out[i] = DayBucket{
			Date:  today.AddDate(0, 0, -daysAgo).Format(time.DateOnly),
			Count: counts[daysAgo],
		}
	}
	return out
}

// roundDiv divides rounding half away from zero, for non-negative inputs.
func roundDiv(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}

func sharesToBuckets(shares []share, counts []int64) []Bucket {
	out := make([]Bucket, len(shares))
	for i, s := range shares {
		out[i] = Bucket{Label: s.label, Count: counts[i]}
	}
	return out
}

func labelsToBuckets(labels []string, counts []int64) []Bucket {
	out := make([]Bucket, len(labels))
	for i, l := range labels {
		out[i] = Bucket{Label: l, Count: counts[i]}
	}
	return out
}
