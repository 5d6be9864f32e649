// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

const sample = `
gateway:
  metrics_listen: ":9102"
  devices:
    - id: meter-1
      source:
        endpoint: 10.0.0.5:502
      variables:
        - name: voltage
          unit_id: 1
          fc: 3
          offset: 0
          type: float32_swapped
        - name: serial
          unit_id: 1
          fc: 3
          offset: 10
          type: bytes
          length: 4
        - name: setpoint
          unit_id: 0
          fc: 16
          offset: 100
          type: int16
    - id: rtu-1
      source:
        mode: rtu
        endpoint: /dev/ttyUSB0
        parity: E
      poll:
        interval_ms: 250
      max_request_length: 50
      variables:
        - name: relay
          unit_id: 5
          fc: 1
          offset: 0
          type: bool
`

func TestLoad_ValidateNormalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.NilError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, cfg.Gateway.LogLevel, DefaultLogLevel)
	assert.Equal(t, cfg.Gateway.MetricsListen, ":9102")
	assert.Equal(t, len(cfg.Gateway.Devices), 2)

	tcp := cfg.Gateway.Devices[0]
	assert.Equal(t, tcp.Source.Mode, ModeTCP)
	assert.Equal(t, tcp.Source.TimeoutMs, DefaultTimeoutMs)
	assert.Equal(t, tcp.Poll.IntervalMs, DefaultIntervalMs)
	assert.Equal(t, tcp.MaxRequestLength, DefaultMaxRequestLength)
	assert.Equal(t, tcp.Source.BaudRate, 0)

	// unit_id 0 is present, not absent
	assert.Assert(t, tcp.Variables[2].UnitID != nil)
	assert.Equal(t, *tcp.Variables[2].UnitID, uint8(0))

	rtu := cfg.Gateway.Devices[1]
	assert.Equal(t, rtu.Source.Mode, ModeRTU)
	assert.Equal(t, rtu.Source.BaudRate, DefaultBaudRate)
	assert.Equal(t, rtu.Source.DataBits, DefaultDataBits)
	assert.Equal(t, rtu.Source.Parity, "E")
	assert.Equal(t, rtu.Source.StopBits, DefaultStopBits)
	assert.Equal(t, rtu.Poll.IntervalMs, 250)
	assert.Equal(t, rtu.MaxRequestLength, 50)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("gateway:\n  devises: []\n"))
	assert.ErrorContains(t, err, "devises")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config: read")
}

func TestBuildVariables(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	assert.NilError(t, err)

	vars, err := BuildVariables(cfg.Gateway.Devices[0])
	assert.NilError(t, err)
	assert.Equal(t, len(vars), 3)

	assert.Equal(t, vars[0].Name(), "voltage")
	assert.Equal(t, vars[0].Kind(), variable.KindFloat32Swapped)
	assert.Equal(t, vars[1].Length(), 4)
	assert.Equal(t, vars[2].FunctionCode(), variable.WriteMultipleRegisters)
	assert.Equal(t, vars[2].UnitID(), uint8(0))
	assert.Assert(t, vars[0].ID() != vars[1].ID())
}
