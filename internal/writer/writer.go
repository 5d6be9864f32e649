// internal/writer/writer.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/grouper"
	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// Writer pushes application values into FC 15/16 variables of one device.
type Writer struct {
	mu       sync.Mutex
	deviceID string
	byName   map[string]*variable.Variable
	grouper  *grouper.Grouper
	log      zerolog.Logger
}

var _ ValueWriter = (*Writer)(nil)

// New indexes vars by name. Read variables are kept so that writing one
// reports ErrNotWritable rather than ErrUnknownVariable.
func New(deviceID string, vars []*variable.Variable, g *grouper.Grouper, log zerolog.Logger) (*Writer, error) {
	if deviceID == "" {
		return nil, errors.New("writer: device id required")
	}
	if g == nil {
		return nil, errors.New("writer: grouper required")
	}

	byName := make(map[string]*variable.Variable, len(vars))
	for _, v := range vars {
		if v == nil {
			continue
		}
		if _, dup := byName[v.Name()]; dup {
			return nil, fmt.Errorf("writer: duplicate variable name %q", v.Name())
		}
		byName[v.Name()] = v
	}

	return &Writer{
		deviceID: deviceID,
		byName:   byName,
		grouper:  g,
		log:      log,
	}, nil
}

// Writable returns the names of the writable variables, sorted.
func (w *Writer) Writable() []string {
	var out []string
	for name, v := range w.byName {
		if v.FunctionCode().IsWrite() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Write validates every value against its codec, stores them and sends the
// touched variables as packed write requests. Nothing is stored when any
// name or value is rejected.
func (w *Writer) Write(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	touched := make([]*variable.Variable, 0, len(names))
	for _, name := range names {
		v, ok := w.byName[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}
		if !v.FunctionCode().IsWrite() {
			return fmt.Errorf("%w: %q (fc=%d)", ErrNotWritable, name, v.FunctionCode())
		}
		if _, err := v.Codec().Encode(values[name]); err != nil {
			return fmt.Errorf("writer: variable %q: %w", name, err)
		}
		touched = append(touched, v)
	}

	for i, v := range touched {
		if err := v.SetValue(values[names[i]]); err != nil {
			return err
		}
	}

	reqs, err := w.grouper.ConvertVariablesToRequests(touched)
	if err != nil {
		return fmt.Errorf("writer: group variables: %w", err)
	}

	var errs []error
	for _, r := range reqs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if _, err := r.Action().Execute(ctx); err != nil {
			errs = append(errs, fmt.Errorf(
				"writer: device=%s fc=%d unit=%d offset=%d len=%d: %w",
				w.deviceID, r.FunctionCode(), r.UnitID(), r.Offset(), r.Len(), err,
			))
			w.log.Warn().
				Err(err).
				Uint8("fc", uint8(r.FunctionCode())).
				Uint8("unit_id", r.UnitID()).
				Uint16("offset", r.Offset()).
				Int("len", r.Len()).
				Msg("write failed")
			continue
		}

		w.log.Debug().
			Uint8("fc", uint8(r.FunctionCode())).
			Uint8("unit_id", r.UnitID()).
			Uint16("offset", r.Offset()).
			Int("len", r.Len()).
			Msg("write ok")
	}

	return errors.Join(errs...)
}
