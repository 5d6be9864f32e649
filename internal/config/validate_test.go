// internal/config/validate_test.go
package config

import (
	"errors"
	"testing"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

func u8(v uint8) *uint8 { return &v }

// helper to build a variable declaration quickly
func vr(name string, unitID uint8, fc uint8, offset uint16, typ string) VariableConfig {
	return VariableConfig{
		Name:   name,
		UnitID: u8(unitID),
		FC:     fc,
		Offset: offset,
		Type:   typ,
	}
}

func device(id string, vars ...VariableConfig) DeviceConfig {
	return DeviceConfig{
		ID: id,
		Source: SourceConfig{
			Endpoint: "127.0.0.1:502",
		},
		Variables: vars,
	}
}

func gateway(devices ...DeviceConfig) *Config {
	return &Config{Gateway: GatewayConfig{Devices: devices}}
}

// ---- tests ----

func TestValidate_Valid(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint16"),
		vr("b", 1, 3, 1, "float32_swapped"),
		vr("c", 1, 1, 0, "bool"),
	))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoOverlapDifferentUnit(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint32"),
		vr("b", 2, 3, 0, "uint32"),
	))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoOverlapDifferentFC(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint32"),
		vr("b", 1, 4, 0, "uint32"),
		vr("c", 1, 16, 0, "uint32"),
	))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_TouchingRangesAllowed(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint32"), // 0–1
		vr("b", 1, 3, 2, "uint32"), // 2–3
	))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_OverlapDetected(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint32"), // 0–1
		vr("b", 1, 3, 1, "uint16"), // 1 → overlap
	))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestValidate_ByteArrayOverlapDetected(t *testing.T) {
	bytes := vr("serial", 1, 3, 10, "bytes")
	bytes.Length = 4 // 10–13

	cfg := gateway(device("d1",
		bytes,
		vr("x", 1, 3, 13, "uint16"),
	))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestValidate_FunctionCodeNotAllowedForType(t *testing.T) {
	cfg := gateway(device("d1", vr("a", 1, 1, 0, "uint16")))

	err := Validate(cfg)
	if !errors.Is(err, variable.ErrInvalidFunctionCode) {
		t.Fatalf("expected ErrInvalidFunctionCode, got %v", err)
	}
}

func TestValidate_UnknownFunctionCode(t *testing.T) {
	cfg := gateway(device("d1", vr("a", 1, 6, 0, "uint16")))

	err := Validate(cfg)
	if !errors.Is(err, variable.ErrInvalidFunctionCode) {
		t.Fatalf("expected ErrInvalidFunctionCode, got %v", err)
	}
}

func TestValidate_UnknownType(t *testing.T) {
	cfg := gateway(device("d1", vr("a", 1, 3, 0, "int64")))

	err := Validate(cfg)
	if !errors.Is(err, variable.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestValidate_MissingUnitID(t *testing.T) {
	v := vr("a", 1, 3, 0, "uint16")
	v.UnitID = nil

	if err := Validate(gateway(device("d1", v))); err == nil {
		t.Fatalf("expected unit_id error, got nil")
	}
}

func TestValidate_LengthRules(t *testing.T) {
	noLen := vr("a", 1, 3, 0, "bytes")
	if err := Validate(gateway(device("d1", noLen))); !errors.Is(err, variable.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}

	stray := vr("a", 1, 3, 0, "uint16")
	stray.Length = 2
	if err := Validate(gateway(device("d1", stray))); err == nil {
		t.Fatalf("expected length error for uint16, got nil")
	}
}

func TestValidate_AddressSpace(t *testing.T) {
	if err := Validate(gateway(device("d1", vr("a", 1, 3, 65535, "uint16")))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(gateway(device("d1", vr("a", 1, 3, 65535, "uint32")))); err == nil {
		t.Fatalf("expected address space error, got nil")
	}
}

func TestValidate_DuplicateNames(t *testing.T) {
	cfg := gateway(device("d1",
		vr("a", 1, 3, 0, "uint16"),
		vr("a", 1, 3, 5, "uint16"),
	))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate name error, got nil")
	}
}

func TestValidate_SameNameOnDifferentDevices(t *testing.T) {
	cfg := gateway(
		device("d1", vr("a", 1, 3, 0, "uint16")),
		device("d2", vr("a", 1, 3, 0, "uint16")),
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DeviceRules(t *testing.T) {
	cases := map[string]*Config{
		"no devices":   gateway(),
		"empty id":     gateway(device("", vr("a", 1, 3, 0, "uint16"))),
		"duplicate id": gateway(device("d1", vr("a", 1, 3, 0, "uint16")), device("d1", vr("a", 1, 3, 0, "uint16"))),
		"no variables": gateway(device("d1")),
	}

	noEndpoint := device("d1", vr("a", 1, 3, 0, "uint16"))
	noEndpoint.Source.Endpoint = ""
	cases["no endpoint"] = gateway(noEndpoint)

	badMode := device("d1", vr("a", 1, 3, 0, "uint16"))
	badMode.Source.Mode = "udp"
	cases["bad mode"] = gateway(badMode)

	tooLong := device("d1", vr("a", 1, 3, 0, "uint16"))
	tooLong.MaxRequestLength = 124
	cases["max length"] = gateway(tooLong)

	badLevel := gateway(device("d1", vr("a", 1, 3, 0, "uint16")))
	badLevel.Gateway.LogLevel = "loud"
	cases["log level"] = badLevel

	for name, cfg := range cases {
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestValidate_VariableLongerThanRequest(t *testing.T) {
	big := vr("blob", 1, 3, 0, "bytes")
	big.Length = 10

	d := device("d1", big)
	d.MaxRequestLength = 8

	if err := Validate(gateway(d)); err == nil {
		t.Fatalf("expected max_request_length error, got nil")
	}
}
