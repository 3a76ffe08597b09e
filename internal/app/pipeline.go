package app

import (
	"context"
	"time"
)

// loop runs two cadences on one goroutine: detection, paced by the motion
// gate, and rendering at RenderFPS. Keeping both here means the tracker
// and stabilizer never need locks.
//
// Detection cycle:
//  1. Read a frame and feed the motion gate.
//  2. While the gate is idle, skip the detector entirely.
//  3. Detect hands, classify, stabilize triggers, manipulate.
//  4. Seeing a hand counts as motion so a still hand keeps the gate awake.
func (a *App) loop(ctx context.Context) error {
	render := time.NewTicker(time.Second / time.Duration(a.cfg.RenderFPS))
	defer render.Stop()

	detect := time.NewTimer(a.gate.Interval())
	defer detect.Stop()

	wasActive := a.gate.Active()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-render.C:
			a.bridge.Tick(now)
		case now := <-detect.C:
			a.detectOnce(now)

			active := a.gate.Active()
			if active != wasActive {
				a.logger.Info("motion gate", "active", active, "interval", a.gate.Interval())
				wasActive = active
			}
			detect.Reset(a.gate.Interval())
		}
	}
}

func (a *App) detectOnce(now time.Time) {
	if !a.IsEnabled() {
		// Release any held gesture so groups fall back to their rest state.
		a.ProcessHands(nil, now)
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Warn("read frame", "err", err)
		return
	}
	defer frame.Close()

	if active, _ := a.gate.Observe(frame, now); !active {
		a.ProcessHands(nil, now)
		return
	}

	d := a.Detector()
	if d == nil {
		return
	}
	hands, err := d.Detect(frame)
	if err != nil {
		a.logger.Warn("detect hands", "err", err)
		return
	}
	if len(hands) > 0 {
		a.gate.Mark(true, now)
	}

	res := a.ProcessHands(hands, now)
	a.logger.Debug("frame",
		"hands", len(hands),
		"state", res.State.Type.String(),
		"strength", res.State.Strength,
		"trigger", res.Trigger.String(),
	)
}
