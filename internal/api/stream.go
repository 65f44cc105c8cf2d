package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
	"github.com/rwandaorbitguard/orbit-guard/kb"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// handleStream upgrades to a websocket and pushes a scene snapshot after
// every catalog change. Ticks that arrive while a frame is being written are
// coalesced into the next frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	sc, ok := s.sceneFor(w, r)
	if !ok {
		return
	}
	filters, err := sceneFilters(r.URL.Query())
	if err != nil {
		WriteJSONError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := logging.FromContext(ctx, s.log)

	s.sceneMetrics.AddStreamClients(1)
	defer s.sceneMetrics.AddStreamClients(-1)

	// Catalog callbacks run inside the propagation tick and must not block.
	changed := make(chan struct{}, 1)
	unsubscribe := sc.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventObjectAdded {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	closeWith := func(code int, text string) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, text),
			time.Now().Add(streamWriteWait))
	}
	send := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(v)
	}

	if err := send(sc.Snapshot(filters)); err != nil {
		log.Debug(ctx, "stream closed", logging.Err(err))
		return
	}
	log.Info(ctx, "stream opened", logging.Scene(sc.Name()))

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			closeWith(websocket.CloseNormalClosure, "")
			return
		case <-sess.Done():
			closeWith(websocket.CloseGoingAway, "session ended")
			log.Info(ctx, "stream closed at session end")
			return
		case <-changed:
			if err := send(sc.Snapshot(filters)); err != nil {
				log.Debug(ctx, "stream closed", logging.Err(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
