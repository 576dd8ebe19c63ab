package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"acro-ng/internal/acro"
	"acro-ng/internal/bus"
	"acro-ng/internal/config"
	"acro-ng/internal/indicator"
	"acro-ng/internal/maneuver"
	"acro-ng/internal/replay"
	"acro-ng/internal/sim"
	"acro-ng/internal/trajectory"
	"acro-ng/internal/udp"
	"acro-ng/internal/web"
)

// runtime owns the commander and its outputs for one process lifetime.
type runtime struct {
	cfg    config.Config
	clock  acro.Clock
	bus    *bus.Bus
	status *web.Status
	cmds   *web.CommandBroadcaster

	commander *acro.Commander
	vehicle   *sim.Vehicle
	udp       *udp.Broadcaster
	recorder  *replay.Writer
	indicator *indicator.Indicator

	lastUDPErr string
	simDone    bool
}

func storeConfig(c config.TrajectoryConfig) trajectory.StoreConfig {
	sc := trajectory.StoreConfig{Dir: c.Dir}
	if len(c.Files) > 0 {
		sc.Files = make(map[trajectory.Maneuver]string, len(c.Files))
		for id, p := range c.Files {
			sc.Files[trajectory.Maneuver(id)] = p
		}
	}
	return sc
}

func newRuntime(cfg config.Config, clk acro.Clock, status *web.Status, cmds *web.CommandBroadcaster) (*runtime, error) {
	if err := config.DefaultAndValidate(&cfg); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("status is nil")
	}

	b := bus.New()
	cmdr, err := acro.New(acro.Config{
		Trajectory:      storeConfig(cfg.Trajectory),
		FinishThreshold: cfg.Maneuver.FinishThreshold,
		TimeConstant:    cfg.Control.TimeConstant,
		MaxBodyRate:     cfg.Control.MaxBodyRate,
		AltitudeMaxStep: cfg.Altitude.MaxStep,
	}, b, clk)
	if err != nil {
		return nil, err
	}

	r := &runtime{
		cfg:       cfg,
		clock:     clk,
		bus:       b,
		status:    status,
		cmds:      cmds,
		commander: cmdr,
	}
	status.SetCommander(cmdr)

	if cfg.Sim.Enable {
		script, err := sim.LoadCommandScript(cfg.Sim.Script)
		if err != nil {
			return nil, fmt.Errorf("sim script: %w", err)
		}
		tl, err := sim.NewTimeline(script)
		if err != nil {
			return nil, fmt.Errorf("sim script: %w", err)
		}
		r.vehicle = sim.NewVehicle(b, sim.NewPlant(cfg.Sim.InitialAlt, cfg.Sim.ClimbRate, cfg.Sim.RateLag), tl)
		log.Printf("sim enabled script=%s rate=%gHz end=%s", cfg.Sim.Script, cfg.Sim.Rate, tl.End())
	}

	if cfg.Output.UDPDest != "" {
		u, err := udp.NewBroadcaster(cfg.Output.UDPDest)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("udp output: %w", err)
		}
		r.udp = u
		log.Printf("udp output dest=%s", cfg.Output.UDPDest)
	}

	if cfg.Output.Record.Enable {
		w, err := replay.CreateWriter(cfg.Output.Record.Path)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("record: %w", err)
		}
		r.recorder = w
		log.Printf("recording commands path=%s", cfg.Output.Record.Path)
	}

	if cfg.Indicator.Enable {
		ind, err := indicator.Open(cfg.Indicator.Chip, cfg.Indicator.Pin)
		if err != nil {
			// Keep running without the status light.
			log.Printf("indicator init failed: %v", err)
		} else {
			r.indicator = ind
		}
	}

	status.SetStatic(web.StaticInfo{
		TrajectoryDir: cfg.Trajectory.Dir,
		UDPDest:       cfg.Output.UDPDest,
		RecordPath:    recordPath(cfg.Output.Record),
		Sim:           simInfo(cfg.Sim),
		Catalog:       catalog(cfg.Trajectory),
	})
	return r, nil
}

// catalog resolves each maneuver's trajectory file the way the commander will.
func catalog(c config.TrajectoryConfig) []web.ManeuverInfo {
	store := trajectory.NewStore(storeConfig(c))
	out := web.Catalog()
	for i := range out {
		out[i].Path = store.Path(trajectory.Maneuver(out[i].ID))
	}
	return out
}

func recordPath(rc config.RecordConfig) string {
	if !rc.Enable {
		return ""
	}
	return rc.Path
}

func simInfo(sc config.SimConfig) map[string]any {
	if !sc.Enable {
		return nil
	}
	return map[string]any{
		"script":      sc.Script,
		"rate_hz":     sc.Rate,
		"rate_lag":    sc.RateLag.String(),
		"climb_rate":  sc.ClimbRate,
		"initial_alt": sc.InitialAlt,
	}
}

// Run steps the simulator (if any) and the commander until ctx is done.
func (r *runtime) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.vehicle == nil {
		log.Printf("no attitude source in process (sim disabled); commander idle")
	}
	t := time.NewTicker(r.cfg.Sim.Interval())
	defer t.Stop()
	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-flush.C:
			if err := r.recorder.Flush(); err != nil {
				log.Printf("record flush failed: %v", err)
			}
		case <-t.C:
			r.step()
		}
	}
}

// step runs one simulator tick and any commander cycle it triggers.
func (r *runtime) step() {
	if r.vehicle != nil {
		now := r.clock.Now()
		r.vehicle.Step(now)
		if !r.simDone && r.vehicle.Done(now) {
			r.simDone = true
			log.Printf("sim: script complete, holding last command")
		}
	}
	out, ok := r.commander.Poll()
	if err := r.indicator.Set(engaged(r.commander.Phase())); err != nil {
		log.Printf("%v", err)
	}
	if !ok {
		return
	}
	r.emit(out)
}

func engaged(p maneuver.Phase) bool {
	return p == maneuver.PhaseActive || p == maneuver.PhaseFinished
}

// emit fans one command out to every configured output.
func (r *runtime) emit(out bus.RateCommand) {
	var d web.Delivery
	if r.udp != nil {
		d.UDPAttempted = true
		d.UDPErr = r.udp.SendCommand(out)
		// Log each distinct failure once until a send succeeds.
		if d.UDPErr != nil && d.UDPErr.Error() != r.lastUDPErr {
			log.Printf("udp send failed: %v", d.UDPErr)
		}
		r.lastUDPErr = ""
		if d.UDPErr != nil {
			r.lastUDPErr = d.UDPErr.Error()
		}
	}
	if r.recorder != nil {
		if err := r.recorder.WriteCommand(out); err != nil {
			log.Printf("record failed: %v", err)
		} else {
			d.Recorded = true
		}
	}
	r.cmds.Publish(out)
	r.status.MarkCommand(time.Now().UTC(), d)
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.recorder != nil {
		if err := r.recorder.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
	}
	if r.udp != nil {
		_ = r.udp.Close()
	}
	_ = r.indicator.Close()
}

// runReplay plays a recorded command log to the UDP output and web stream.
func runReplay(ctx context.Context, cfg config.Config, path string, speed float64, status *web.Status, cmds *web.CommandBroadcaster) error {
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	var u *udp.Broadcaster
	if cfg.Output.UDPDest != "" {
		u, err = udp.NewBroadcaster(cfg.Output.UDPDest)
		if err != nil {
			return fmt.Errorf("udp output: %w", err)
		}
		defer u.Close()
	}
	status.SetStatic(web.StaticInfo{TrajectoryDir: cfg.Trajectory.Dir, UDPDest: cfg.Output.UDPDest, Catalog: catalog(cfg.Trajectory)})
	log.Printf("replay path=%s records=%d speed=%g", path, len(recs), speed)
	return replay.Play(ctx, recs, speed, nil, func(cmd bus.RateCommand) error {
		var d web.Delivery
		if u != nil {
			d.UDPAttempted = true
			d.UDPErr = u.SendCommand(cmd)
		}
		cmds.Publish(cmd)
		status.MarkCommand(time.Now().UTC(), d)
		return nil
	})
}
