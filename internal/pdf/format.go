package pdf

import (
	"strconv"
	"strings"
	"time"
)

// Age returns full years between birth and at, or "" for an unknown birth
// date.
func Age(birth, at time.Time) string {
	if birth.IsZero() {
		return ""
	}
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return ""
	}
	return strconv.Itoa(years)
}

// FormatDate renders DD/MM/YYYY.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatTime renders HH:MM on a 24 hour clock.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}

// Schedule renders "HH:MM–HH:MM hs" from optional start and end times.
func Schedule(start, end *time.Time) string {
	a, b := FormatTime(start), FormatTime(end)
	switch {
	case a != "" && b != "":
		return a + "–" + b + " hs"
	case a != "":
		return a + " hs"
	case b != "":
		return b + " hs"
	}
	return ""
}

func YesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}

// Dash replaces blank values with "-".
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return strings.TrimSpace(s)
}

// TechniqueParagraphs tidies free technique text: line endings unified,
// repeated spaces collapsed, blank lines dropped and the last paragraph
// closed with punctuation.
func TechniqueParagraphs(raw string) []string {
	text := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	text = strings.ReplaceAll(text, " .", ".")

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if n := len(out); n > 0 && !strings.ContainsAny(out[n-1][len(out[n-1])-1:], ".:;!?") {
		out[n-1] += "."
	}
	return out
}
