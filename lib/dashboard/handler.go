// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/liveplot/lib/netutil"
	"github.com/bureau-foundation/liveplot/lib/updates"
	"github.com/bureau-foundation/liveplot/lib/version"
)

//go:embed index.html
var indexSource string

var indexTemplate = template.Must(template.New("index").Parse(indexSource))

// streamWriteTimeout bounds each websocket frame write. A client that
// cannot take a frame in this time is disconnected.
const streamWriteTimeout = 10 * time.Second

// Handler returns the dashboard's HTTP routes.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", d.handleIndex)
	mux.HandleFunc("GET /api/plots", d.handleList)
	mux.HandleFunc("GET /api/plots/{id}", d.handlePlot)
	mux.HandleFunc("POST /api/plots/{id}/{action}", d.handleAction)
	mux.HandleFunc("DELETE /api/plots/{id}", d.handleDelete)
	mux.HandleFunc("GET /api/stream", d.handleStream)
	mux.HandleFunc("GET /api/status", d.handleStatus)
	if d.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (d *Dashboard) handleIndex(writer http.ResponseWriter, request *http.Request) {
	var page bytes.Buffer
	err := indexTemplate.Execute(&page, struct {
		Title   string
		Columns int
		Version string
	}{d.title, d.columns, version.Info()})
	if err != nil {
		d.logger.Error("rendering index", "error", err)
		http.Error(writer, "rendering page", http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Write(page.Bytes())
}

func (d *Dashboard) handleList(writer http.ResponseWriter, request *http.Request) {
	d.writeJSON(writer, d.board.list())
}

// handlePlot serves one plot with a content ETag so polling clients
// skip unchanged figures.
func (d *Dashboard) handlePlot(writer http.ResponseWriter, request *http.Request) {
	view, ok := d.board.get(request.PathValue("id"))
	if !ok {
		http.Error(writer, ErrUnknownPlot.Error(), http.StatusNotFound)
		return
	}
	body, err := json.Marshal(view)
	if err != nil {
		d.logger.Error("encoding plot", "id", view.ID, "error", err)
		http.Error(writer, "encoding plot", http.StatusInternalServerError)
		return
	}
	sum := blake3.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	writer.Header().Set("ETag", etag)
	if request.Header.Get("If-None-Match") == etag {
		writer.WriteHeader(http.StatusNotModified)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.Write(body)
}

func (d *Dashboard) handleAction(writer http.ResponseWriter, request *http.Request) {
	id := request.PathValue("id")
	var err error
	switch action := request.PathValue("action"); action {
	case "pause":
		err = d.Pause(id)
	case "resume":
		err = d.Resume(id)
	case "hide":
		err = d.Hide(id)
	case "show":
		err = d.Show(id)
	default:
		http.Error(writer, "unknown action "+action, http.StatusNotFound)
		return
	}
	d.finishAction(writer, id, err)
}

func (d *Dashboard) handleDelete(writer http.ResponseWriter, request *http.Request) {
	id := request.PathValue("id")
	d.finishAction(writer, id, d.Delete(id))
}

func (d *Dashboard) finishAction(writer http.ResponseWriter, id string, err error) {
	if errors.Is(err, ErrUnknownPlot) {
		http.Error(writer, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	d.logger.Debug("plot action", "id", id)
	writer.WriteHeader(http.StatusNoContent)
}

// Status is the body of /api/status.
type Status struct {
	Dashboard boardStats     `json:"dashboard"`
	Updates   *updates.Stats `json:"updates,omitempty"`
	Engine    any            `json:"engine,omitempty"`
}

func (d *Dashboard) handleStatus(writer http.ResponseWriter, request *http.Request) {
	status := Status{Dashboard: d.board.stats()}
	if d.stats != nil {
		stats := d.stats()
		status.Updates = &stats
	}
	if d.status != nil {
		status.Engine = d.status()
	}
	d.writeJSON(writer, status)
}

// handleStream pushes board changes over a websocket. The first frame
// carries every plot; later frames carry plots whose version passed
// the last frame's. A slow client skips intermediate states and
// converges on the latest.
func (d *Dashboard) handleStream(writer http.ResponseWriter, request *http.Request) {
	conn, err := d.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		d.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := request.Context()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Reading is required to process control frames; clients
		// send nothing else.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					d.logger.Debug("websocket read failed", "error", err)
				}
				return
			}
		}
	}()

	d.logger.Debug("stream client connected", "remote", request.RemoteAddr)
	seen, full := uint64(0), true
	for {
		changed := d.board.wait()
		if message, ok := d.board.since(seen, full); ok {
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(message); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					d.logger.Warn("stream write failed", "remote", request.RemoteAddr, "error", err)
				}
				return
			}
			seen, full = message.Version, false
		}
		select {
		case <-changed:
		case <-closed:
			d.logger.Debug("stream client disconnected", "remote", request.RemoteAddr)
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (d *Dashboard) writeJSON(writer http.ResponseWriter, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		d.logger.Error("encoding response", "error", err)
		http.Error(writer, "encoding response", http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.Write(body)
}
