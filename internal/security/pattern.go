package security

import (
	"fmt"
	"path"
	"strings"
)

// pathPattern is a compiled Ant-style path pattern. "*" matches one segment,
// "**" matches any number of segments including none, and a segment holding
// "*" or "?" is matched as a shell glob within that segment.
type pathPattern struct {
	raw      string
	segments []string
}

func compilePattern(raw string) (pathPattern, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return pathPattern{}, fmt.Errorf("empty exempt path pattern")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	segs := splitSegments(p)
	for i, seg := range segs {
		if seg == "**" || !isGlob(seg) {
			continue
		}
		seg = escapeGlob(seg)
		if _, err := path.Match(seg, ""); err != nil {
			return pathPattern{}, fmt.Errorf("exempt path pattern %q: %w", raw, err)
		}
		segs[i] = seg
	}
	return pathPattern{raw: raw, segments: segs}, nil
}

func (p pathPattern) matches(segs []string) bool {
	return matchSegments(p.segments, segs)
}

func matchSegments(pattern, segs []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for len(pattern) > 0 && pattern[0] == "**" {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pattern, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 || !matchSegment(pattern[0], segs[0]) {
			return false
		}
		pattern, segs = pattern[1:], segs[1:]
	}
	return len(segs) == 0
}

func matchSegment(pattern, seg string) bool {
	if !isGlob(pattern) {
		return pattern == seg
	}
	ok, err := path.Match(pattern, seg)
	return err == nil && ok
}

func isGlob(seg string) bool {
	return strings.ContainsAny(seg, "*?")
}

// escapeGlob keeps "[" and "\" literal so only "*" and "?" act as wildcards.
func escapeGlob(seg string) string {
	return strings.NewReplacer(`\`, `\\`, `[`, `\[`).Replace(seg)
}

// normalizePath roots and cleans a request path so dot segments cannot walk
// out of an exempt prefix.
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func splitSegments(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
