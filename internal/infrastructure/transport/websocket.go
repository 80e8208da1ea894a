package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"testgen/internal/domain/entity"
	"testgen/internal/infrastructure/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// GET /jobs/{id}/events
//
// Streams the job as JSON: the current snapshot first, then every status
// change. The server closes the socket after a terminal status.
func (h *Handler) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// subscribe before reading the snapshot so no transition falls in between
	updates, release := h.broker.Subscribe(id)
	defer release()

	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "get job failed", id, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job_id", id, "err", err)
		return
	}
	defer conn.Close()

	metrics.IncWSConnections()
	defer metrics.DecWSConnections()

	if !h.sendJob(conn, *job) || job.Status.IsTerminal() {
		h.closeSocket(conn)
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	last := job.Status
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if !advances(last, upd.Status) {
				continue
			}
			last = upd.Status
			if !h.sendJob(conn, upd) {
				return
			}
			if upd.Status.IsTerminal() {
				h.closeSocket(conn)
				return
			}
		}
	}
}

// advances reports whether next should follow last on the stream. Stale
// updates behind the snapshot are skipped; a terminal status always goes out.
func advances(last, next entity.JobStatus) bool {
	if next == last || last.IsTerminal() {
		return false
	}
	return entity.CanTransition(last, next) || next.IsTerminal()
}

func (h *Handler) sendJob(conn *websocket.Conn, job entity.Job) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(job); err != nil {
		h.logger.Debug("websocket write failed", "job_id", job.ID, "err", err)
		return false
	}
	return true
}

func (h *Handler) closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
