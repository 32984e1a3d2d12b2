package common

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadEnvFile sets KEY=VALUE pairs from path into the process environment and
// returns the keys it set. Variables already present in the environment win.
// A missing file is not an error. Lines may carry an "export " prefix; values
// may be single or double quoted, and unquoted values end at " #".
func LoadEnvFile(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	var loaded []string
	s := bufio.NewScanner(f)
	lineNo := 0
	for s.Scan() {
		lineNo++
		key, value, ok, err := parseEnvLine(s.Text())
		if err != nil {
			return loaded, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return loaded, fmt.Errorf("set %s: %w", key, err)
		}
		loaded = append(loaded, key)
	}
	if err := s.Err(); err != nil {
		return loaded, fmt.Errorf("read env file: %w", err)
	}
	return loaded, nil
}

func parseEnvLine(line string) (key, value string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false, nil
	}
	line = strings.TrimPrefix(line, "export ")
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false, nil
	}
	key = strings.TrimSpace(k)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false, fmt.Errorf("invalid key %q", k)
	}
	v = strings.TrimSpace(v)
	if len(v) > 0 && (v[0] == '"' || v[0] == '\'') {
		end := strings.IndexByte(v[1:], v[0])
		if end < 0 {
			return "", "", false, fmt.Errorf("unterminated quote for %s", key)
		}
		return key, v[1 : end+1], true, nil
	}
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return key, v, true, nil
}
