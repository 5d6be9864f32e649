// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// MaxRequestLength is the largest configurable request budget in words.
// 123 is the FC16 register limit.
const MaxRequestLength = 123

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}

	if cfg.Gateway.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.Gateway.LogLevel); err != nil {
			return fmt.Errorf("gateway: log_level %q: %w", cfg.Gateway.LogLevel, err)
		}
	}

	if len(cfg.Gateway.Devices) == 0 {
		return fmt.Errorf("gateway: at least one device required")
	}

	seen := make(map[string]struct{}, len(cfg.Gateway.Devices))
	for _, d := range cfg.Gateway.Devices {
		if d.ID == "" {
			return fmt.Errorf("device: id required")
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		seen[d.ID] = struct{}{}

		if err := validateDevice(d); err != nil {
			return err
		}
	}

	return nil
}

func validateDevice(d DeviceConfig) error {
	switch d.Source.Mode {
	case "", ModeTCP, ModeRTU:
	default:
		return fmt.Errorf("device %q: unknown source mode %q", d.ID, d.Source.Mode)
	}
	if d.Source.Endpoint == "" {
		return fmt.Errorf("device %q: source endpoint required", d.ID)
	}
	if d.Source.TimeoutMs < 0 {
		return fmt.Errorf("device %q: timeout_ms must be >= 0", d.ID)
	}
	if d.Poll.IntervalMs < 0 {
		return fmt.Errorf("device %q: interval_ms must be >= 0", d.ID)
	}
	if d.MaxRequestLength < 0 || d.MaxRequestLength > MaxRequestLength {
		return fmt.Errorf("device %q: max_request_length %d out of range 0..%d",
			d.ID, d.MaxRequestLength, MaxRequestLength)
	}
	if len(d.Variables) == 0 {
		return fmt.Errorf("device %q: at least one variable required", d.ID)
	}

	// ------------------------------------------------------------
	// VARIABLE DECLARATIONS
	// ------------------------------------------------------------

	type span struct {
		start int
		end   int // inclusive
		name  string
	}

	names := make(map[string]struct{}, len(d.Variables))

	// key = unit_id | fc
	spans := make(map[string][]span)

	for _, v := range d.Variables {
		if v.Name == "" {
			return fmt.Errorf("device %q: variable name required", d.ID)
		}
		if _, dup := names[v.Name]; dup {
			return fmt.Errorf("device %q: duplicate variable name %q", d.ID, v.Name)
		}
		names[v.Name] = struct{}{}

		if v.UnitID == nil {
			return fmt.Errorf("device %q variable %q: unit_id required", d.ID, v.Name)
		}

		fc := variable.FunctionCode(v.FC)
		if !fc.Valid() {
			return fmt.Errorf("device %q variable %q: fc=%d: %w", d.ID, v.Name, v.FC, variable.ErrInvalidFunctionCode)
		}

		kind, err := variable.ParseKind(v.Type)
		if err != nil {
			return fmt.Errorf("device %q variable %q: %w", d.ID, v.Name, err)
		}
		if kind != variable.KindByteArray && v.Length != 0 {
			return fmt.Errorf("device %q variable %q: length is only valid for type bytes", d.ID, v.Name)
		}

		codec, err := variable.CodecFor(kind, v.Length)
		if err != nil {
			return fmt.Errorf("device %q variable %q: %w", d.ID, v.Name, err)
		}

		allowed := false
		for _, c := range codec.AllowedFunctionCodes() {
			if c == fc {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("device %q variable %q: fc=%d not allowed for type %s: %w",
				d.ID, v.Name, v.FC, kind, variable.ErrInvalidFunctionCode)
		}

		start := int(v.Offset)
		end := start + codec.WordLength() - 1
		if end > 0xFFFF {
			return fmt.Errorf("device %q variable %q: range %d-%d exceeds address space", d.ID, v.Name, start, end)
		}

		limit := d.MaxRequestLength
		if limit == 0 {
			limit = DefaultMaxRequestLength
		}
		if codec.WordLength() > limit {
			return fmt.Errorf("device %q variable %q: %d words exceeds max_request_length %d",
				d.ID, v.Name, codec.WordLength(), limit)
		}

		key := fmt.Sprintf("%d|%d", *v.UnitID, v.FC)

		for _, s := range spans[key] {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"device %q: register overlap: unit_id=%d fc=%d variable %q range=%d-%d overlaps with %q range=%d-%d",
					d.ID,
					*v.UnitID,
					v.FC,
					v.Name,
					start,
					end,
					s.name,
					s.start,
					s.end,
				)
			}
		}

		spans[key] = append(spans[key], span{
			start: start,
			end:   end,
			name:  v.Name,
		})
	}

	return nil
}
