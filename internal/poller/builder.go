// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/grouper"
	"github.com/tamzrod/modbus-gateway/internal/request"
)

// Build constructs a Poller for one device over an already opened driver.
// Variables are built fresh from the device declarations.
func Build(d cfg.DeviceConfig, drv request.Driver, log zerolog.Logger) (*Poller, error) {
	vars, err := cfg.BuildVariables(d)
	if err != nil {
		return nil, err
	}

	g, err := grouper.New(drv, d.MaxRequestLength)
	if err != nil {
		return nil, err
	}

	return New(
		Config{
			DeviceID: d.ID,
			Interval: time.Duration(d.Poll.IntervalMs) * time.Millisecond,
		},
		vars,
		g,
		log,
	)
}
