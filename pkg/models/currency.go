package models

import (
	"fmt"
	"strconv"
	"strings"
)

// maxSafeJSONInt is the largest integer a JSON consumer backed by IEEE-754
// doubles can represent exactly (2^53 - 1).
const maxSafeJSONInt = int64(1)<<53 - 1

// Currency is a 64-bit in-game monetary amount. Values outside the safe
// JSON integer range are serialized as strings so browser clients do not
// silently lose precision.
type Currency int64

func (c Currency) Int64() int64 { return int64(c) }

func (c Currency) MarshalJSON() ([]byte, error) {
	v := int64(c)
	if v > maxSafeJSONInt || v < -maxSafeJSONInt {
		return []byte(`"` + strconv.FormatInt(v, 10) + `"`), nil
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

// UnmarshalJSON accepts both the numeric and the string encoding.
func (c *Currency) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid currency value %q: %w", s, err)
	}
	*c = Currency(v)
	return nil
}
