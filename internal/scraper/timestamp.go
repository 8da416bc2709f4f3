package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// metaPattern matches the vendor metadata string prefix, e.g.
// "[1:23 pm, 5/6/2024] Jane Doe: "
var metaPattern = regexp.MustCompile(`(?i)^\[(\d{1,2}):(\d{2})\s*(am|pm)\s*,\s*(\d{1,2})/(\d{1,2})/(\d{4})\]`)

// parseMessageTime parses the localized time and date encoded in the
// metadata string. The second return value reports whether parsing
// succeeded; callers fall back to the scrape-time instant when it did not.
func parseMessageTime(meta string, loc *time.Location) (time.Time, bool) {
	m := metaPattern.FindStringSubmatch(strings.TrimSpace(meta))
	if m == nil {
		return time.Time{}, false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[4])
	month, _ := strconv.Atoi(m[5])
	year, _ := strconv.Atoi(m[6])

	if hour < 1 || hour > 12 || minute > 59 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}

	if strings.EqualFold(m[3], "pm") && hour != 12 {
		hour += 12
	} else if strings.EqualFold(m[3], "am") && hour == 12 {
		hour = 0
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}
