// internal/config/variables.go
package config

import (
	"fmt"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// BuildVariables turns a device's variable declarations into live variables.
// Each call yields fresh identities.
func BuildVariables(d DeviceConfig) ([]*variable.Variable, error) {
	out := make([]*variable.Variable, 0, len(d.Variables))
	for _, vc := range d.Variables {
		kind, err := variable.ParseKind(vc.Type)
		if err != nil {
			return nil, fmt.Errorf("device %q variable %q: %w", d.ID, vc.Name, err)
		}

		v, err := variable.New(variable.Config{
			Name:         vc.Name,
			UnitID:       vc.UnitID,
			FunctionCode: variable.FunctionCode(vc.FC),
			Offset:       vc.Offset,
			Kind:         kind,
			Length:       vc.Length,
		})
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
