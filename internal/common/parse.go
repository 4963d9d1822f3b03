package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseUint64orHex converts the given uint64 string into the number.
// It can parse the string with 0x prefix as well.
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

// unix timestamps above this are treated as milliseconds
const unixMillisThreshold = 1e11

// ParseTime accepts RFC3339 strings and unix timestamps in seconds or milliseconds.
func ParseTime(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		if n > unixMillisThreshold {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339 or unix timestamp", val)
	}
	return t.UTC(), nil
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
