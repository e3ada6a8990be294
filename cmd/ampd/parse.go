package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parsePosition reads a seek target as m:ss, h:mm:ss, a Go duration
// ("1m30s") or plain milliseconds
func parsePosition(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty position")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		var total int64
		for i, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid position %q", s)
			}
			if i > 0 && n > 59 {
				return 0, fmt.Errorf("invalid position %q", s)
			}
			total = total*60 + n
		}
		return total * 1000, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("position must not be negative")
		}
		return n, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("position must not be negative")
	}
	return d.Milliseconds(), nil
}

// parseSwitch reads on/off style arguments
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
