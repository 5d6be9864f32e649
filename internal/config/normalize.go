// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultLogLevel         = "info"
	DefaultTimeoutMs        = 1000
	DefaultIntervalMs       = 1000
	DefaultMaxRequestLength = 100

	DefaultBaudRate = 19200
	DefaultDataBits = 8
	DefaultParity   = "N"
	DefaultStopBits = 1
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Gateway.LogLevel == "" {
		cfg.Gateway.LogLevel = DefaultLogLevel
	}

	for di := range cfg.Gateway.Devices {
		d := &cfg.Gateway.Devices[di]

		if d.Source.Mode == "" {
			d.Source.Mode = ModeTCP
		}
		if d.Source.TimeoutMs == 0 {
			d.Source.TimeoutMs = DefaultTimeoutMs
		}
		if d.Poll.IntervalMs == 0 {
			d.Poll.IntervalMs = DefaultIntervalMs
		}
		if d.MaxRequestLength == 0 {
			d.MaxRequestLength = DefaultMaxRequestLength
		}

		// Serial line settings only matter for RTU.
		if d.Source.Mode != ModeRTU {
			continue
		}
		if d.Source.BaudRate == 0 {
			d.Source.BaudRate = DefaultBaudRate
		}
		if d.Source.DataBits == 0 {
			d.Source.DataBits = DefaultDataBits
		}
		if d.Source.Parity == "" {
			d.Source.Parity = DefaultParity
		}
		if d.Source.StopBits == 0 {
			d.Source.StopBits = DefaultStopBits
		}
	}
}
