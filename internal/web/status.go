package web

import (
	"sync/atomic"
	"time"

	"acro-ng/internal/acro"
)

// CommanderSource reports the commander's current state.
type CommanderSource interface {
	Status() acro.Status
}

type Status struct {
	startUnixNano int64
	udpSent       uint64
	udpErrors     uint64
	recorded      uint64
	lastCmdNano   int64
	static        atomic.Value // StaticInfo
	commander     atomic.Value // CommanderSource
}

// StaticInfo is configuration shown on the status page.
type StaticInfo struct {
	TrajectoryDir string         `json:"trajectory_dir"`
	UDPDest       string         `json:"udp_dest,omitempty"`
	RecordPath    string         `json:"record_path,omitempty"`
	Sim           map[string]any `json:"sim,omitempty"`
	// Catalog holds the resolved trajectory path for each maneuver.
	Catalog []ManeuverInfo `json:"catalog,omitempty"`
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.static.Store(StaticInfo{})
	return s
}

func (s *Status) SetStatic(info StaticInfo) {
	if s == nil {
		return
	}
	s.static.Store(info)
}

func (s *Status) SetCommander(src CommanderSource) {
	if s == nil || src == nil {
		return
	}
	s.commander.Store(src)
}

// Delivery is the outcome of fanning one command out to the outputs.
type Delivery struct {
	UDPAttempted bool
	UDPErr       error
	Recorded     bool
}

// MarkCommand records one published command and the outcome of its outputs.
func (s *Status) MarkCommand(nowUTC time.Time, d Delivery) {
	if s == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastCmdNano, nowUTC.UnixNano())
	if d.UDPAttempted {
		if d.UDPErr != nil {
			atomic.AddUint64(&s.udpErrors, 1)
		} else {
			atomic.AddUint64(&s.udpSent, 1)
		}
	}
	if d.Recorded {
		atomic.AddUint64(&s.recorded, 1)
	}
}

type StatusSnapshot struct {
	Service          string      `json:"service"`
	NowUTC           string      `json:"now_utc"`
	UptimeSec        int64       `json:"uptime_sec"`
	Static           StaticInfo  `json:"config"`
	UDPSentTotal     uint64      `json:"udp_sent_total"`
	UDPErrorsTotal   uint64      `json:"udp_errors_total"`
	RecordedTotal    uint64      `json:"recorded_total"`
	LastCommandUTC   string      `json:"last_command_utc,omitempty"`
	StreamListeners  int         `json:"stream_listeners"`
	StreamDropped    uint64      `json:"stream_dropped"`
	Commander        acro.Status `json:"commander"`
	CommanderPresent bool        `json:"commander_present"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	snap := StatusSnapshot{
		Service:        "acro-ng",
		NowUTC:         nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:      int64(nowUTC.Sub(start).Seconds()),
		Static:         s.static.Load().(StaticInfo),
		UDPSentTotal:   atomic.LoadUint64(&s.udpSent),
		UDPErrorsTotal: atomic.LoadUint64(&s.udpErrors),
		RecordedTotal:  atomic.LoadUint64(&s.recorded),
	}
	if last := atomic.LoadInt64(&s.lastCmdNano); last != 0 {
		snap.LastCommandUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	if src, ok := s.commander.Load().(CommanderSource); ok && src != nil {
		snap.Commander = src.Status()
		snap.CommanderPresent = true
	}
	return snap
}
