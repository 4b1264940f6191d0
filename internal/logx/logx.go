package logx

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const prefix = "[GPT]"

var enableColor = isatty.IsTerminal(os.Stdout.Fd()) && strings.TrimSpace(os.Getenv("NO_COLOR")) == ""

func ColorEnabled() bool { return enableColor }

func ColorizeStatus(status int) string {
	return ColorizeStatusWith(status, enableColor)
}

func ColorizeStatusWith(status int, color bool) string {
	if !color {
		return strconv.Itoa(status)
	}
	const (
		reset  = "\x1b[0m"
		red    = "\x1b[31m"
		green  = "\x1b[32m"
		yellow = "\x1b[33m"
		cyan   = "\x1b[36m"
	)
	switch {
	case status >= 200 && status < 300:
		return green + strconv.Itoa(status) + reset
	case status >= 300 && status < 400:
		return cyan + strconv.Itoa(status) + reset
	case status >= 400 && status < 500:
		return yellow + strconv.Itoa(status) + reset
	default:
		return red + strconv.Itoa(status) + reset
	}
}

// FormatRequestLine prints a single line request log. clientIP is left out
// for outbound calls.
//
// Example:
// [GPT] 2026/01/26 - 17:44:22 | 200 | 812ms | POST "/v1/chat/completions" | endpoint=chat model=gpt-4o input_tokens=12
func FormatRequestLine(
	ts time.Time,
	status int,
	latency time.Duration,
	clientIP string,
	method string,
	path string,
	fields map[string]any,
) string {
	return FormatRequestLineWithColor(ts, status, latency, clientIP, method, path, fields, enableColor)
}

func FormatRequestLineWithColor(
	ts time.Time,
	status int,
	latency time.Duration,
	clientIP string,
	method string,
	path string,
	fields map[string]any,
	color bool,
) string {
	parts := []string{
		prefix + " " + ts.Format("2006/01/02 - 15:04:05"),
		ColorizeStatusWith(status, color),
		latency.Round(time.Millisecond).String(),
	}
	if ip := strings.TrimSpace(clientIP); ip != "" {
		parts = append(parts, ip)
	}
	parts = append(parts, fmt.Sprintf("%s %q", strings.TrimSpace(method), path))
	if extra := formatFields(fields); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " | ")
}

// tokenKeys are printed last, in this order, and skipped when zero.
var tokenKeys = []string{
	"input_tokens",
	"output_tokens",
	"total_tokens",
	"estimated",
	"cost_total",
}

func isTokenKey(k string) bool {
	for _, t := range tokenKeys {
		if t == k {
			return true
		}
	}
	return false
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if isTokenKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(fields))
	appendIfPresent := func(k string) {
		v, ok := fields[k]
		if !ok || v == nil {
			return
		}
		if isTokenKey(k) {
			switch t := v.(type) {
			case int:
				if t == 0 {
					return
				}
			case float64:
				if t == 0 {
					return
				}
			case bool:
				if !t {
					return
				}
			}
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				return
			}
			parts = append(parts, k+"="+t)
		case float64:
			s := strconv.FormatFloat(t, 'f', 12, 64)
			s = strings.TrimRight(s, "0")
			s = strings.TrimRight(s, ".")
			if s == "" || s == "-" {
				s = "0"
			}
			parts = append(parts, k+"="+s)
		case error:
			parts = append(parts, fmt.Sprintf("%s=%q", k, t.Error()))
		default:
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s == "" || s == "<nil>" {
				return
			}
			parts = append(parts, k+"="+s)
		}
	}

	for _, k := range keys {
		appendIfPresent(k)
	}
	for _, k := range tokenKeys {
		appendIfPresent(k)
	}
	return strings.Join(parts, " ")
}
