package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// yelpTimeLayout is the layout of review timestamps.
const yelpTimeLayout = "2006-01-02 15:04:05"

// FormatReviewDate formats a review timestamp with humanized relative display.
// "Today", "Yesterday", "3d ago", "Jan 15", "Jan 15 '24"
func FormatReviewDate(created string, now time.Time) string {
	created = strings.TrimSpace(created)
	if created == "" {
		return "Unknown"
	}
	t, err := time.ParseInLocation(yelpTimeLayout, created, now.Location())
	if err != nil {
		return created
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dateDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())

	days := int(today.Sub(dateDay).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatRating formats a public rating as "4.5 ★".
func FormatRating(rating float64) string {
	return formatRatingNumber(rating) + " ★"
}

// FormatUserRating formats the user's own rating, or "—" if unrated.
func FormatUserRating(rating float64, ok bool) string {
	if !ok {
		return "—"
	}
	return formatRatingNumber(rating) + "/5"
}

// FormatRatingStars formats a 0-5 rating as stars (e.g., "★★★★☆").
func FormatRatingStars(rating float64) string {
	stars := int(math.Round(rating))
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return strings.Repeat("★", stars) + strings.Repeat("☆", 5-stars)
}

// FormatPrice returns the price tier or "—" when unknown.
func FormatPrice(price string) string {
	if strings.TrimSpace(price) == "" {
		return "—"
	}
	return price
}

// FormatDistance formats meters as miles, or feet under a tenth of a mile.
func FormatDistance(meters float64) string {
	if meters <= 0 {
		return "—"
	}
	miles := meters / 1609.344
	if miles < 0.1 {
		return fmt.Sprintf("%d ft", int(math.Round(meters*3.28084)))
	}
	return fmt.Sprintf("%.1f mi", miles)
}

// FormatOpenNow formats an open/closed flag.
func FormatOpenNow(open bool) string {
	if open {
		return "Open now"
	}
	return "Closed"
}

// FormatHours formats a 24h "HHMM" time as "11:00".
func FormatHours(hhmm string) string {
	if len(hhmm) != 4 {
		return hhmm
	}
	return hhmm[:2] + ":" + hhmm[2:]
}

// Weekday names in the API's day numbering, where 0 is Monday.
var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// FormatWeekday returns the short name for an API day index.
func FormatWeekday(day int) string {
	if day < 0 || day >= len(weekdays) {
		return "?"
	}
	return weekdays[day]
}

func formatRatingNumber(v float64) string {
	// Keep one decimal at most, but avoid trailing .0 for whole values.
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s
}

// ParsePriceInput parses a price filter such as "$$", "$,$$$" or "1,2" into
// API tiers ("1".."4"). Empty input returns nil.
func ParsePriceInput(input string) ([]string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, nil
	}

	var tiers []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tier := part
		if strings.Trim(part, "$") == "" {
			tier = strconv.Itoa(len(part))
		}

		n, err := strconv.Atoi(tier)
		if err != nil || n < 1 || n > 4 {
			return nil, fmt.Errorf("invalid price tier %q", part)
		}
		if !seen[tier] {
			seen[tier] = true
			tiers = append(tiers, tier)
		}
	}

	return tiers, nil
}

// FormatPriceTiers renders API tiers back as "$, $$".
func FormatPriceTiers(tiers string) string {
	if tiers == "" {
		return ""
	}
	parts := strings.Split(tiers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			out = append(out, strings.Repeat("$", n))
		}
	}
	return strings.Join(out, ", ")
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
