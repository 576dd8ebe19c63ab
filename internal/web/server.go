package web

import (
	"context"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"
)

type rootPage struct {
	StatusSnapshot
	Catalog []ManeuverInfo
}

var rootTmpl = template.Must(template.New("root").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>acro-ng</title></head><body>
<h1>acro-ng</h1>
<p>See <a href="/api/status">/api/status</a>, <a href="/api/logs?format=text">/api/logs</a> and the <code>/ws/commands</code> stream.</p>
{{with .Commander}}<pre>phase={{.Phase}}
maneuver={{.Maneuver}}
elapsed={{.Elapsed}}
finish={{.FinishCounter}}/{{.FinishThreshold}}
samples={{.TrajectorySamples}}
load_error={{.LastLoadError}}</pre>{{end}}
<pre>udp_sent_total={{.UDPSentTotal}}
recorded_total={{.RecordedTotal}}</pre>
<table>
<tr><th>id</th><th>maneuver</th><th>file</th></tr>
{{range .Catalog}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{if .Path}}{{.Path}}{{else}}{{.File}}{{end}}</td></tr>
{{end}}</table>
</body></html>
`))

func Handler(status *Status, logs *LogBuffer, cmds *CommandBroadcaster) http.Handler {
	if status == nil {
		status = NewStatus()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGET(w, r) {
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		snap.StreamListeners = cmds.Subscribers()
		snap.StreamDropped = cmds.Dropped()
		writeJSON(w, snap)
	})

	mux.HandleFunc("/api/command", func(w http.ResponseWriter, r *http.Request) {
		if !allowGET(w, r) {
			return
		}
		cmd, ok := cmds.Latest()
		if !ok {
			http.Error(w, "no command published", http.StatusNotFound)
			return
		}
		writeJSON(w, cmd)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}
	mux.Handle("/api/about", AboutHandler(status))
	mux.Handle("/ws/commands", StreamHandler(cmds))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if !allowGET(w, r) {
			return
		}
		page := rootPage{StatusSnapshot: status.Snapshot(time.Now().UTC()), Catalog: status.static.Load().(StaticInfo).Catalog}
		if len(page.Catalog) == 0 {
			page.Catalog = Catalog()
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := rootTmpl.Execute(w, page); err != nil {
			log.Printf("web: render root page: %v", err)
		}
	})

	return mux
}

// allowGET rejects anything but GET with 405 and reports whether to proceed.
func allowGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer, cmds *CommandBroadcaster) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs, cmds),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
