package web

import (
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"acro-ng/internal/bus"
	"acro-ng/internal/trajectory"
)

// ManeuverInfo describes one catalog entry. Path and Present are filled in
// when the runtime has resolved the configured trajectory files.
type ManeuverInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	File    string `json:"file"`
	Path    string `json:"path,omitempty"`
	Present bool   `json:"present,omitempty"`
}

// Catalog lists the built-in maneuvers with their default file names.
func Catalog() []ManeuverInfo {
	var out []ManeuverInfo
	for _, m := range trajectory.Maneuvers() {
		out = append(out, ManeuverInfo{ID: int(m), Name: m.String(), File: m.FileName()})
	}
	return out
}

type buildInfo struct {
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

var readBuild = sync.OnceValue(func() buildInfo {
	out := buildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.ModulePath = bi.Main.Path
	out.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		case "vcs.time":
			out.BuildTime = s.Value
		}
	}
	return out
})

type AboutResponse struct {
	Service string `json:"service"`
	Opcode  uint16 `json:"acrobatic_opcode"`
	NowUTC  string `json:"now_utc"`
	buildInfo

	Maneuvers []ManeuverInfo `json:"maneuvers"`
}

// AboutHandler reports build details and the maneuver catalog. Configured
// paths come from status; each one is checked for presence per request.
func AboutHandler(status *Status) http.Handler {
	if status == nil {
		status = NewStatus()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowGET(w, r) {
			return
		}
		maneuvers := status.static.Load().(StaticInfo).Catalog
		if len(maneuvers) == 0 {
			maneuvers = Catalog()
		}
		resp := AboutResponse{
			Service:   "acro-ng",
			Opcode:    bus.CmdDoAcrobatic,
			NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
			buildInfo: readBuild(),
			Maneuvers: make([]ManeuverInfo, len(maneuvers)),
		}
		for i, m := range maneuvers {
			if m.Path != "" {
				fi, err := os.Stat(m.Path)
				m.Present = err == nil && fi.Mode().IsRegular()
			}
			resp.Maneuvers[i] = m
		}
		writeJSON(w, resp)
	})
}
