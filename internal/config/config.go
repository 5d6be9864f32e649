// internal/config/config.go
package config

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
}

type GatewayConfig struct {
	LogLevel      string         `yaml:"log_level"`
	MetricsListen string         `yaml:"metrics_listen"`
	Devices       []DeviceConfig `yaml:"devices"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID               string           `yaml:"id"`
	Source           SourceConfig     `yaml:"source"`
	Poll             PollConfig       `yaml:"poll"`
	MaxRequestLength int              `yaml:"max_request_length"`
	Variables        []VariableConfig `yaml:"variables"`
}

// ---- SOURCE ----

const (
	ModeTCP = "tcp"
	ModeRTU = "rtu"
)

type SourceConfig struct {
	Mode      string `yaml:"mode"`     // tcp | rtu
	Endpoint  string `yaml:"endpoint"` // host:port or serial device
	TimeoutMs int    `yaml:"timeout_ms"`

	// RTU only
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
}

// ---- VARIABLES ----

type VariableConfig struct {
	Name   string `yaml:"name"`
	UnitID *uint8 `yaml:"unit_id"` // required; nil means absent
	FC     uint8  `yaml:"fc"`
	Offset uint16 `yaml:"offset"`
	Type   string `yaml:"type"`
	Length int    `yaml:"length"` // bytes only, in words
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
