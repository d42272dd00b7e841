package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/capy-discord/capy/pkg/analytics"
)

// DecodeInteraction converts an interaction record into its aggregated form.
func DecodeInteraction(data map[string]any) (analytics.Interaction, error) {
	var rec analytics.Interaction
	var err error

	if rec.Type, err = requiredString(data, "interaction_type"); err != nil {
		return rec, err
	}
	if rec.UserID, err = requiredUint(data, "user_id"); err != nil {
		return rec, err
	}
	if rec.CorrelationID, err = optionalString(data, "correlation_id"); err != nil {
		return rec, err
	}
	if rec.Username, err = optionalString(data, "username"); err != nil {
		return rec, err
	}
	if rec.CommandName, err = optionalString(data, "command_name"); err != nil {
		return rec, err
	}
	if rec.GuildName, err = optionalString(data, "guild_name"); err != nil {
		return rec, err
	}
	if v, ok := data["guild_id"]; ok && v != nil {
		id, err := toUint(v)
		if err != nil {
			return rec, fmt.Errorf("guild_id: %w", err)
		}
		rec.GuildID = &id
	}
	if v, ok := data["channel_id"]; ok && v != nil {
		if rec.ChannelID, err = toUint(v); err != nil {
			return rec, fmt.Errorf("channel_id: %w", err)
		}
	}
	if v, ok := data["timestamp"]; ok && v != nil {
		ts, ok := v.(time.Time)
		if !ok {
			return rec, fmt.Errorf("timestamp: expected time.Time, got %T", v)
		}
		rec.Timestamp = ts
	}
	if v, ok := data["options"]; ok && v != nil {
		opts, ok := v.(map[string]any)
		if !ok {
			return rec, fmt.Errorf("options: expected map, got %T", v)
		}
		rec.Options = opts
	}
	return rec, nil
}

// DecodeCompletion converts a completion or failure record into its
// aggregated form.
func DecodeCompletion(data map[string]any) (analytics.Completion, error) {
	var rec analytics.Completion
	var err error

	if rec.Status, err = requiredString(data, "status"); err != nil {
		return rec, err
	}
	if rec.CommandName, err = optionalString(data, "command_name"); err != nil {
		return rec, err
	}
	if rec.CorrelationID, err = optionalString(data, "correlation_id"); err != nil {
		return rec, err
	}
	if rec.ErrorType, err = optionalString(data, "error_type"); err != nil {
		return rec, err
	}
	if v, ok := data["duration_ms"]; ok && v != nil {
		ms, err := toFloat(v)
		if err != nil {
			return rec, fmt.Errorf("duration_ms: %w", err)
		}
		rec.DurationMS = &ms
	}
	return rec, nil
}

func requiredString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return s, nil
}

func optionalString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return s, nil
}

func requiredUint(data map[string]any, key string) (uint64, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := toUint(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func toUint(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative id %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative id %d", n)
		}
		return uint64(n), nil
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, fmt.Errorf("invalid id %v", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
