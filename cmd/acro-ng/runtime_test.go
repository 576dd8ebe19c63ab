package main

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/westphae/quaternion"

	"acro-ng/internal/bus"
	"acro-ng/internal/clock"
	"acro-ng/internal/config"
	"acro-ng/internal/replay"
	"acro-ng/internal/trajectory"
	"acro-ng/internal/web"
)

func minimalCfg(t *testing.T, dir string) config.Config {
	t.Helper()
	script := filepath.Join(dir, "script.yaml")
	if err := os.WriteFile(script, []byte("commands:\n  - t: 0s\n    maneuver: loop\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	roll := quaternion.FromAxisAngle(quaternion.Vec3{X: 1, Y: 0, Z: 0}, 20*math.Pi/180)
	if err := trajectory.WriteFile(filepath.Join(dir, "loop.txt"), trajectory.ManeuverLoop, []trajectory.Sample{
		{At: 0, Q: quaternion.Identity()},
		{At: 200 * time.Millisecond, Q: roll},
	}); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfg := config.Config{
		Trajectory: config.TrajectoryConfig{Dir: dir},
		Maneuver:   config.ManeuverConfig{FinishThreshold: 10},
		Sim: config.SimConfig{
			Enable:     true,
			Script:     script,
			InitialAlt: 500,
		},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate() error: %v", err)
	}
	return cfg
}

func TestRuntime_SimulatedManeuverReachesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := minimalCfg(t, dir)

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	defer pc.Close()
	cfg.Output.UDPDest = pc.LocalAddr().String()
	cfg.Output.Record = config.RecordConfig{Enable: true, Path: filepath.Join(dir, "cmd.log")}

	clk := clock.NewManual(time.Second)
	status := web.NewStatus()
	cmds := web.NewCommandBroadcaster()
	r, err := newRuntime(cfg, clk, status, cmds)
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}

	for i := 0; i < 150; i++ {
		r.step()
		clk.Advance(cfg.Sim.Interval())
	}
	r.Close()

	last, ok := cmds.Latest()
	if !ok || !last.Finished || last.Maneuver != int(trajectory.ManeuverLoop) {
		t.Fatalf("latest=%+v ok=%v", last, ok)
	}
	snap := status.Snapshot(time.Time{})
	if snap.Commander.Phase != "FINISHED" || snap.UDPSentTotal != 150 || snap.RecordedTotal != 150 {
		t.Fatalf("snap=%+v", snap)
	}
	if snap.Static.UDPDest != cfg.Output.UDPDest || snap.Static.Sim["script"] != cfg.Sim.Script {
		t.Fatalf("static=%+v", snap.Static)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error: %v", err)
	}
	var first bus.RateCommand
	if err := json.Unmarshal(buf[:n], &first); err != nil {
		t.Fatalf("datagram is not a command: %v", err)
	}
	if first.Elapsed != 0 || first.AltitudeSetpoint != 500 {
		t.Fatalf("first=%+v", first)
	}

	recs, err := replay.ReadFile(cfg.Output.Record.Path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(recs) != 151 || recs[0].Cmd != nil {
		t.Fatalf("records=%d want START + 150", len(recs))
	}
	if recs[150].At != 149*cfg.Sim.Interval() {
		t.Fatalf("last record at %s", recs[150].At)
	}
}

func TestRuntime_NoSimStaysIdle(t *testing.T) {
	cfg := config.Config{Trajectory: config.TrajectoryConfig{Dir: t.TempDir()}}
	cmds := web.NewCommandBroadcaster()
	r, err := newRuntime(cfg, clock.NewManual(0), web.NewStatus(), cmds)
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}
	defer r.Close()
	for i := 0; i < 10; i++ {
		r.step()
	}
	if _, ok := cmds.Latest(); ok {
		t.Fatalf("expected no commands without an attitude source")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != context.Canceled {
		t.Fatalf("Run() err=%v want canceled", err)
	}
}

func TestNewRuntime_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{Sim: config.SimConfig{Enable: true, Script: filepath.Join(dir, "missing.yaml")}}
	if _, err := newRuntime(cfg, clock.NewManual(0), web.NewStatus(), nil); err == nil {
		t.Fatalf("expected error for missing sim script")
	}
	if _, err := newRuntime(config.Config{}, clock.NewManual(0), nil, nil); err == nil {
		t.Fatalf("expected error for nil status")
	}
	bad := config.Config{Control: config.ControlConfig{TimeConstant: -1}}
	if _, err := newRuntime(bad, clock.NewManual(0), web.NewStatus(), nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStoreConfig_MapsOverrides(t *testing.T) {
	sc := storeConfig(config.TrajectoryConfig{Dir: "/d", Files: map[int]string{2: "imm.txt"}})
	if sc.Dir != "/d" || sc.Files[trajectory.ManeuverImmelmann] != "imm.txt" {
		t.Fatalf("store config=%+v", sc)
	}
	if got := trajectory.NewStore(sc).Path(trajectory.ManeuverImmelmann); got != filepath.Join("/d", "imm.txt") {
		t.Fatalf("path=%q", got)
	}

	cat := catalog(config.TrajectoryConfig{Dir: "/d", Files: map[int]string{2: "imm.txt"}})
	if len(cat) != 5 || cat[0].Path != filepath.Join("/d", "loop.txt") || cat[1].Path != filepath.Join("/d", "imm.txt") {
		t.Fatalf("catalog=%+v", cat)
	}
}

func TestRunReplay_PublishesRecordedCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd.log")
	w, err := replay.CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.WriteCommand(bus.RateCommand{Timestamp: time.Duration(i), Maneuver: 4}); err != nil {
			t.Fatalf("WriteCommand() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	cmds := web.NewCommandBroadcaster()
	status := web.NewStatus()
	if err := runReplay(context.Background(), config.Config{}, path, 1000, status, cmds); err != nil {
		t.Fatalf("runReplay() error: %v", err)
	}
	if last, ok := cmds.Latest(); !ok || last.Timestamp != 2 || last.Maneuver != 4 {
		t.Fatalf("latest=%+v ok=%v", last, ok)
	}
	if snap := status.Snapshot(time.Time{}); snap.LastCommandUTC == "" || snap.UDPSentTotal != 0 {
		t.Fatalf("snap=%+v", snap)
	}
}
