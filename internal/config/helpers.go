package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// parseDuration accepts a Go duration ("90s", "1m30s") or a whole number of seconds.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if duration, err := time.ParseDuration(value); err == nil {
		return duration, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration: %q", value)
}

// optionalBool returns nil unless key was set by a flag, the environment or
// the config file. Besides the usual boolean forms it accepts on/off and yes/no.
func optionalBool(v *viper.Viper, key string) (*bool, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "yes":
			raw = true
		case "off", "no":
			raw = false
		}
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &b, nil
}

// optionalInt returns nil unless key was set by a flag, the environment or the config file.
func optionalInt(v *viper.Viper, key string) (*int, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	i, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &i, nil
}

// optionalDuration returns nil unless key was set by a flag, the environment or the config file.
func optionalDuration(v *viper.Viper, key string) (*time.Duration, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	d, err := parseDuration(cast.ToString(v.Get(key)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}
