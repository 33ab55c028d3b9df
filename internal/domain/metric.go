package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var metricRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([kmb])?`)

var metricMultipliers = map[string]float64{
	"":  1,
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
}

// ParseMetric parses counters such as "1.2K", "15M", "1,234" or "3.4K likes".
// Anything it cannot read yields 0.
func ParseMetric(s string) int64 {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	m := metricRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	v := math.Round(n * metricMultipliers[m[2]])
	if v < 0 || v > math.MaxInt64 {
		return 0
	}
	return int64(v)
}
