// Package semver compares dotted numeric versions such as "1.2" or "v1.2.3".
package semver

import (
	"fmt"
	"regexp"
	"strconv"
)

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Parse extracts the first major.minor[.patch] triple found in v. A missing
// patch component is 0.
func Parse(v string) ([3]int, error) {
	var out [3]int
	m := versionRegex.FindStringSubmatch(v)
	if m == nil {
		return out, fmt.Errorf("Invalid version format")
	}
	for i := 1; i <= 3; i++ {
		if m[i] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i])
		if err != nil {
			return out, fmt.Errorf("Invalid version format: %w", err)
		}
		out[i-1] = n
	}
	return out, nil
}

// Cmp returns -1, 0 or 1 comparing a with b.
func Cmp(a, b [3]int) int {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// Compare evaluates "v1 op v2". Accepted operators are
// =, !=, >, <, >=, <= and their word forms eq, ne, gt, lt, ge, le.
func Compare(v1, op, v2 string) (bool, error) {
	left, err := Parse(v1)
	if err != nil {
		return false, err
	}
	right, err := Parse(v2)
	if err != nil {
		return false, err
	}

	c := Cmp(left, right)
	switch op {
	case "=", "eq":
		return c == 0, nil
	case "!=", "ne":
		return c != 0, nil
	case ">", "gt":
		return c > 0, nil
	case "<", "lt":
		return c < 0, nil
	case ">=", "ge":
		return c >= 0, nil
	case "<=", "le":
		return c <= 0, nil
	default:
		return false, fmt.Errorf("Invalid operator")
	}
}

// MajorMinor returns "v<major>.<minor>" for v, or "v0.0" when v does not parse.
func MajorMinor(v string) string {
	parts, err := Parse(v)
	if err != nil {
		return "v0.0"
	}
	return fmt.Sprintf("v%d.%d", parts[0], parts[1])
}
