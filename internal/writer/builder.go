// internal/writer/builder.go
package writer

import (
	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/grouper"
	"github.com/tamzrod/modbus-gateway/internal/request"
)

// Build constructs the Writer for one device over an already opened driver.
// Assumes config has already passed validation.
func Build(d cfg.DeviceConfig, drv request.Driver, log zerolog.Logger) (*Writer, error) {
	vars, err := cfg.BuildVariables(d)
	if err != nil {
		return nil, err
	}

	g, err := grouper.New(drv, d.MaxRequestLength)
	if err != nil {
		return nil, err
	}

	return New(d.ID, vars, g, log)
}
