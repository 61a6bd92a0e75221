package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/formatter"
)

// Validator validates and normalizes a configuration value. A non-nil
// error makes Load warn and fall back to the default.
type Validator func(key, value, defaultValue string) (normalized string, err error)

var (
	validatorsMu sync.RWMutex
	validators   = make(map[string]Validator)
)

// RegisterValidator registers a validator for a configuration key.
// Panics if a validator is already registered for the key.
func RegisterValidator(key string, validator Validator) {
	validatorsMu.Lock()
	defer validatorsMu.Unlock()
	if _, exists := validators[key]; exists {
		panic(fmt.Sprintf("validator already registered for key: %s", key))
	}
	validators[key] = validator
}

func getValidator(key string) Validator {
	validatorsMu.RLock()
	defer validatorsMu.RUnlock()
	return validators[key]
}

// PositiveIntValidator accepts integers greater than zero.
func PositiveIntValidator() Validator {
	return func(_, value, defaultValue string) (string, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			return defaultValue, nil
		}
		if n, err := strconv.Atoi(value); err != nil || n <= 0 {
			return "", fmt.Errorf("%q is not a positive integer", value)
		}
		return value, nil
	}
}

// EnumValidator accepts one of allowed, case-insensitively.
func EnumValidator(allowed ...string) Validator {
	return func(_, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		lower := strings.ToLower(strings.TrimSpace(value))
		for _, a := range allowed {
			if lower == a {
				return lower, nil
			}
		}
		sorted := append([]string(nil), allowed...)
		sort.Strings(sorted)
		return "", fmt.Errorf("%q must be one of: %s", value, strings.Join(sorted, ", "))
	}
}

// BoolValidator normalizes 1/yes/on and 0/no/off to true and false.
func BoolValidator() Validator {
	return func(_, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return "true", nil
		case "0", "false", "no", "off":
			return "false", nil
		}
		return "", fmt.Errorf("%q is not a boolean (1, true, yes, on, 0, false, no, off)", value)
	}
}

// DurationValidator accepts a Go duration or a bare number of seconds,
// the two forms GetDuration reads. Zero is allowed only when allowZero is
// set, for intervals where zero turns the behavior off.
func DurationValidator(allowZero bool) Validator {
	return func(_, value, defaultValue string) (string, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			return defaultValue, nil
		}
		d, err := parseSecondsOrDuration(value)
		if err != nil {
			return "", fmt.Errorf("%q is not a duration (e.g. 30, 30s, 5m)", value)
		}
		if d < 0 || (d == 0 && !allowZero) {
			return "", fmt.Errorf("%q must be greater than zero", value)
		}
		return value, nil
	}
}

func parseSecondsOrDuration(value string) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(value)
}

// URLValidator accepts absolute URLs with one of schemes. An empty value is
// kept when allowEmpty is set.
func URLValidator(allowEmpty bool, schemes ...string) Validator {
	return func(_, value, defaultValue string) (string, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			if allowEmpty {
				return "", nil
			}
			return defaultValue, nil
		}
		u, err := url.Parse(value)
		if err != nil {
			return "", err
		}
		if u.Host == "" {
			return "", fmt.Errorf("%q has no host", value)
		}
		for _, s := range schemes {
			if strings.EqualFold(u.Scheme, s) {
				return strings.TrimRight(value, "/"), nil
			}
		}
		return "", fmt.Errorf("%q must use %s", value, strings.Join(schemes, " or "))
	}
}

// StatusFormatValidator accepts a preset name or a template that parses.
func StatusFormatValidator() Validator {
	return func(_, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		if _, err := formatter.NewPresets().Resolve(value); err != nil {
			return "", err
		}
		return value, nil
	}
}

// TmuxOptionValidator accepts tmux user options, which start with "@".
func TmuxOptionValidator() Validator {
	return func(_, value, defaultValue string) (string, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			return defaultValue, nil
		}
		if !strings.HasPrefix(value, "@") || len(value) == 1 || strings.ContainsAny(value, " \t") {
			return "", errors.New("must be a tmux user option such as @chat_intray_title")
		}
		return value, nil
	}
}

func initValidators() {
	positive := PositiveIntValidator()
	for _, key := range []string{
		"unread_cache_ttl", "title_blink_interval_ms", "cue_dedup_size",
		"upload_max_concurrent", "hooks_async_timeout", "max_hooks", "logging_max_files",
	} {
		RegisterValidator(key, positive)
	}

	RegisterValidator("unread_focus_throttle", DurationValidator(true))
	RegisterValidator("unread_poll_interval", DurationValidator(true))
	RegisterValidator("events_heartbeat_interval", DurationValidator(false))

	RegisterValidator("api_base_url", URLValidator(false, "http", "https"))
	RegisterValidator("events_url", URLValidator(true, "ws", "wss"))

	RegisterValidator("storage_backend", EnumValidator("json", "sqlite"))
	RegisterValidator("hooks_failure_mode", EnumValidator("ignore", "warn", "abort"))
	RegisterValidator("title_sink", EnumValidator("terminal", "tmux", "none"))
	RegisterValidator("cue_dedup_criteria", EnumValidator("timestamp", "timestamp_channel"))
	RegisterValidator("logging_level", EnumValidator("debug", "info", "warn", "error"))
	RegisterValidator("status_format", StatusFormatValidator())
	RegisterValidator("tmux_title_option", TmuxOptionValidator())

	boolean := BoolValidator()
	for _, key := range []string{"cue_bell", "hooks_enabled", "hooks_async", "logging_enabled", "debug", "quiet"} {
		RegisterValidator(key, boolean)
	}
}
