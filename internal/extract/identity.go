package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// SyntheticID builds the fallback identity prefix_handle_epochMillis.
// It never dedups against a later capture carrying the real ID.
func SyntheticID(p domain.Platform, handle string, now time.Time) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		handle = "unknown"
	}
	return fmt.Sprintf("%s_%s_%d", p.Prefix(), handle, now.UnixMilli())
}

// IsSyntheticID reports whether id was built by SyntheticID for p.
func IsSyntheticID(p domain.Platform, id string) bool {
	return strings.HasPrefix(id, p.Prefix()+"_")
}

const microblogEpochMillis = 1288834974657

// SnowflakeTime decodes the creation time embedded in numeric post IDs.
func SnowflakeTime(p domain.Platform, id string) (time.Time, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}, false
	}
	switch p {
	case domain.PlatformMicroblog:
		ms := int64(n>>22) + microblogEpochMillis
		return time.UnixMilli(ms).UTC(), true
	case domain.PlatformShortVideo:
		sec := int64(n >> 32)
		if sec == 0 {
			return time.Time{}, false
		}
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses durations such as PT1M30S into seconds.
func ParseISODuration(s string) (float64, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	var total float64
	units := []float64{86400, 3600, 60, 1}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += v * unit
	}
	return total, true
}

// ParseClockDuration parses overlay timestamps like 3:33 or 1:02:03.
func ParseClockDuration(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + float64(n)
	}
	return total, true
}

// parseTime accepts the timestamp layouts seen in page markup.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
