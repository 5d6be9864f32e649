// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/grouper"
	"github.com/tamzrod/modbus-gateway/internal/request"
	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	DeviceID string
	Interval time.Duration
}

// Poller is a clock-driven reader for one device.
// Requests are rebuilt every cycle and never shared between cycles.
type Poller struct {
	cfg     Config
	vars    []*variable.Variable
	grouper *grouper.Grouper
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a poller with immutable config.
// Only variables with a read function code are polled.
func New(cfg Config, vars []*variable.Variable, g *grouper.Grouper, log zerolog.Logger) (*Poller, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("poller: device id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if g == nil {
		return nil, errors.New("poller: grouper required")
	}

	reads := make([]*variable.Variable, 0, len(vars))
	for _, v := range vars {
		if v != nil && !v.FunctionCode().IsWrite() {
			reads = append(reads, v)
		}
	}

	return &Poller{
		cfg:     cfg,
		vars:    reads,
		grouper: g,
		log:     log,
		now:     time.Now,
	}, nil
}

// Variables returns the polled variables.
func (p *Poller) Variables() []*variable.Variable {
	out := make([]*variable.Variable, len(p.vars))
	copy(out, p.vars)
	return out
}

// PollOnce performs exactly one poll cycle.
// A failing request is recorded and the cycle continues with the next one.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		DeviceID: p.cfg.DeviceID,
		At:       p.now(),
	}

	reqs, err := p.grouper.ConvertVariablesToRequests(p.vars)
	if err != nil {
		res.Err = fmt.Errorf("poller: group variables: %w", err)
		p.log.Error().Err(res.Err).Msg("poll cycle aborted")
		return res
	}
	res.Requests = len(reqs)

	var errs []error
	for _, r := range reqs {
		if err := p.execute(ctx, r); err != nil {
			re := RequestError{
				FC:     r.FunctionCode(),
				UnitID: r.UnitID(),
				Offset: r.Offset(),
				Len:    r.Len(),
				Err:    err,
			}
			res.Errors = append(res.Errors, re)
			errs = append(errs, &re)

			p.log.Warn().
				Err(err).
				Uint8("fc", uint8(re.FC)).
				Uint8("unit_id", re.UnitID).
				Uint16("offset", re.Offset).
				Int("len", re.Len).
				Msg("request failed")
			continue
		}

		for _, v := range r.Variables() {
			res.Values = append(res.Values, valueOf(v))
		}
	}

	res.Err = errors.Join(errs...)

	p.log.Debug().
		Int("requests", res.Requests).
		Int("failed", len(res.Errors)).
		Int("values", len(res.Values)).
		Dur("took", p.now().Sub(res.At)).
		Msg("poll cycle")

	return res
}

func (p *Poller) execute(ctx context.Context, r *request.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := r.Action()
	if a == nil {
		return errors.New("poller: request has no action")
	}
	words, err := a.Execute(ctx)
	if err != nil {
		return err
	}
	return r.SetResponseData(words)
}

func valueOf(v *variable.Variable) Value {
	return Value{
		Name:   v.Name(),
		UnitID: v.UnitID(),
		FC:     v.FunctionCode(),
		Offset: v.Offset(),
		Kind:   v.Kind(),
		Value:  v.Value(),
		Raw:    v.Raw(),
	}
}
