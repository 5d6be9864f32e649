// cmd/gateway/orchestrator.go
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/status"
)

// observer receives poll results and health changes.
type observer interface {
	ObservePoll(res poller.PollResult)
	ObserveStatus(device string, snap status.Snapshot)
}

// orchestrator owns one device's status tracker and feeds results to metrics.
type orchestrator struct {
	deviceID string
	tracker  *status.Tracker
	obs      observer
	log      zerolog.Logger
	tick     time.Duration
}

func newOrchestrator(deviceID string, obs observer, log zerolog.Logger) *orchestrator {
	return &orchestrator{
		deviceID: deviceID,
		tracker:  status.NewTracker(),
		obs:      obs,
		log:      log,
		tick:     time.Second,
	}
}

// run consumes results until ctx ends. Seconds in error advance on the
// 1 Hz ticker only.
func (o *orchestrator) run(ctx context.Context, in <-chan poller.PollResult) {
	secTicker := time.NewTicker(o.tick)
	defer secTicker.Stop()

	// Publish the boot state.
	o.obs.ObserveStatus(o.deviceID, o.tracker.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			o.obs.ObservePoll(res)

			prev := o.tracker.Snapshot()
			snap, changed := o.tracker.Observe(res)
			if !changed {
				continue
			}
			o.obs.ObserveStatus(o.deviceID, snap)

			if prev.Health != snap.Health {
				ev := o.log.Info()
				if snap.InError() {
					ev = o.log.Warn().Err(res.Err)
				}
				ev.Str("from", status.HealthName(prev.Health)).
					Str("to", status.HealthName(snap.Health)).
					Uint16("last_error_code", snap.LastErrorCode).
					Msg("device health changed")
			}

		case <-secTicker.C:
			if snap, changed := o.tracker.Tick(); changed {
				o.obs.ObserveStatus(o.deviceID, snap)
			}
		}
	}
}
