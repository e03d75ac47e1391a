// Package sdkconfig reads the KEY=value configuration files produced by the
// ESP-IDF menuconfig step.
package sdkconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var linePattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*=\s*(.*)$`)

// Config is a parsed sdkconfig file.
type Config struct {
	// Keys preserves file order.
	Keys   []string
	Values map[string]interface{}
	// Warnings holds lines that are neither settings nor comments.
	Warnings []string
}

// Parse reads settings from r. "y" and "n" become booleans, integers are
// converted, everything else is kept verbatim.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{Values: make(map[string]interface{})}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("line %d: unrecognized line format: %s", lineNo, line))
			continue
		}

		key := m[1]
		if _, seen := cfg.Values[key]; !seen {
			cfg.Keys = append(cfg.Keys, key)
		}
		cfg.Values[key] = convert(strings.TrimSpace(m[2]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sdkconfig: %w", err)
	}
	return cfg, nil
}

// ParseFile parses the sdkconfig at path.
func ParseFile(path string) (*Config, error) {
	//nolint:gosec // G304: path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

func convert(value string) interface{} {
	switch value {
	case "y":
		return true
	case "n":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}
