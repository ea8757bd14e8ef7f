package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	minYear = 1900
	maxYear = 2100

	// Serials from 61 on include the phantom 1900-02-29 of spreadsheet calendars.
	leapBugSerial = 61
)

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	serialEpoch       = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	serialEpochLeapFx = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	genericDateLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/01/02",
		"2006.01.02",
		"02.01.2006",
		"02-01-2006",
		"2 Jan 2006",
		"2 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Mon Jan 2 2006",
		"Mon, 02 Jan 2006 15:04:05 MST",
	}
)

// NormalizeDate converts a raw cell value into YYYY-MM-DD. Values that
// cannot be read as a date become now's date.
func NormalizeDate(raw string, now time.Time) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return now.Format(dateLayout)
	}

	if date, ok := dateFromSerial(value); ok {
		return date
	}
	if date, ok := dateFromDayMonth(value); ok {
		return date
	}
	if date, ok := dateFromMonthDay(value); ok {
		return date
	}
	if isoDatePattern.MatchString(value) {
		if _, err := time.Parse(dateLayout, value); err == nil {
			return value
		}
	}
	for _, layout := range genericDateLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if parsed.Year() < minYear || parsed.Year() > maxYear {
			continue
		}
		return parsed.Format(dateLayout)
	}
	return now.Format(dateLayout)
}

func dateFromSerial(value string) (string, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(serial) || serial <= 0 || serial >= 100000 {
		return "", false
	}
	days := int(math.Floor(serial))
	epoch := serialEpoch
	if days >= leapBugSerial {
		epoch = serialEpochLeapFx
	}
	date := epoch.AddDate(0, 0, days)
	if date.Year() < minYear || date.Year() > maxYear {
		return "", false
	}
	return date.Format(dateLayout), true
}

// dateFromDayMonth reads DD/MM/YY and DD/MM/YYYY. Ambiguous values such as
// 03/04/2024 resolve here, as day first.
func dateFromDayMonth(value string) (string, bool) {
	first, second, year, ok := splitSlashDate(value)
	if !ok {
		return "", false
	}
	return buildDate(year, second, first)
}

// dateFromMonthDay reads MM/DD/YYYY. It only sees values the day-first
// reading rejected, in practice those whose second field is above 12.
func dateFromMonthDay(value string) (string, bool) {
	first, second, year, ok := splitSlashDate(value)
	if !ok {
		return "", false
	}
	return buildDate(year, first, second)
}

func splitSlashDate(value string) (int, int, int, bool) {
	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	first, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, 0, false
	}
	second, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, 0, false
	}
	yearPart := strings.TrimSpace(parts[2])
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, 0, false
	}
	if len(yearPart) <= 2 {
		year += 2000
	}
	return first, second, year, true
}

func buildDate(year, month, day int) (string, bool) {
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return "", false
	}
	if year < minYear || year > maxYear {
		return "", false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		return "", false
	}
	return date.Format(dateLayout), true
}
