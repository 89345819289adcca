package tools

import (
	"regexp"
	"strconv"
	"strings"
)

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

var versionRegex = regexp.MustCompile(`([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)

// normalizeVersion pulls the first dotted number out of a version banner,
// e.g. "ffmpeg version 6.1.1-static" -> "6.1.1".
func normalizeVersion(line string) string {
	match := versionRegex.FindString(line)
	if match == "" {
		return line
	}
	return match
}

// meetsMinimum and meetsMaximum treat an empty bound as open and an empty
// version as failing any set bound.
func meetsMinimum(version, minimum string) bool {
	return withinBound(version, minimum, func(c int) bool { return c >= 0 })
}

func meetsMaximum(version, maximum string) bool {
	return withinBound(version, maximum, func(c int) bool { return c <= 0 })
}

func withinBound(version, bound string, ok func(int) bool) bool {
	switch {
	case bound == "":
		return true
	case version == "":
		return false
	}
	return ok(compareParts(numericParts(version), numericParts(bound)))
}

func compareParts(a, b []int) int {
	for len(a) < len(b) {
		a = append(a, 0)
	}
	for len(b) < len(a) {
		b = append(b, 0)
	}
	for i := range a {
		if a[i] > b[i] {
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
	}
	return 0
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	if current.Len() > 0 {
		val, _ := strconv.Atoi(current.String())
		parts = append(parts, val)
	}
	return parts
}
