package prompts

import (
	"strings"
	"time"
)

// Template substitution keys.
const (
	KeyCurrentDate = "current_date"
	KeyCurrentTime = "current_time"
	KeyWeekday     = "weekday"
)

// Supported weekday locales.
const (
	LocaleEN = "en"
	LocaleZH = "zh"
)

var weekdayNames = map[string][7]string{
	// Indexed by time.Weekday, Sunday first.
	LocaleEN: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	LocaleZH: {"日", "一", "二", "三", "四", "五", "六"},
}

// Weekday returns the localized weekday name of t. Unknown locales fall
// back to English.
func Weekday(t time.Time, locale string) string {
	names, ok := weekdayNames[locale]
	if !ok {
		names = weekdayNames[LocaleEN]
	}
	return names[t.Weekday()]
}

// Vars returns the substitution values for a system instruction rendered
// at now.
func Vars(now time.Time, locale string) map[string]string {
	return map[string]string{
		KeyCurrentDate: now.Format("2006-01-02"),
		KeyCurrentTime: now.Format("15:04"),
		KeyWeekday:     Weekday(now, locale),
	}
}

// Render substitutes {key} placeholders in tmpl. "{{" and "}}" produce
// literal braces, so JSON examples in a template are written with doubled
// braces. Placeholders with no value are left exactly as written.
func Render(tmpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			key := tmpl[i+1 : i+1+end]
			if v, ok := vars[key]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(tmpl[i : i+end+2])
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
