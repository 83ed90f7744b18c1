package youtube

import (
	"strconv"
	"strings"
)

// FormatViewCount renders a raw view count as "1.2M views", "12.3K views" or
// "123 views". Unparseable input renders as "0 views".
func FormatViewCount(raw string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return "0 views"
	}
	switch {
	case n >= 1_000_000_000:
		return compact(float64(n)/1_000_000_000) + "B views"
	case n >= 1_000_000:
		return compact(float64(n)/1_000_000) + "M views"
	case n >= 1_000:
		return compact(float64(n)/1_000) + "K views"
	default:
		return strconv.FormatInt(n, 10) + " views"
	}
}

func compact(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}
