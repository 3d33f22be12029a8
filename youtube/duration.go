package youtube

import (
	"strconv"
	"strings"
	"time"
)

// parseISODuration parses the ISO 8601 duration form the Data API uses
// for video lengths ("PT1H2M3S", "PT45S", "P1DT2H"). Unparseable input
// yields zero.
func parseISODuration(s string) time.Duration {
	if !strings.HasPrefix(s, "P") {
		return 0
	}
	s = strings.TrimPrefix(s, "P")

	var total time.Duration
	inTime := false
	num := ""

	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			num = ""
			switch r {
			case 'D':
				total += time.Duration(n) * 24 * time.Hour
			case 'H':
				total += time.Duration(n) * time.Hour
			case 'M':
				if inTime {
					total += time.Duration(n) * time.Minute
				} else {
					// Months are not meaningful for video lengths.
					return 0
				}
			case 'S':
				total += time.Duration(n) * time.Second
			default:
				return 0
			}
		}
	}
	return total
}
