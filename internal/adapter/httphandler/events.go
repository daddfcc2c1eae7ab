package httphandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
)

const defaultKeepAliveInterval = 15 * time.Second

// An EventsHandler streams the session cart as Server-Sent Events.
//
// The current cart is sent first, then one event per change.
// A slow client only receives the latest state. Every keep-alive
// keeps the session from being evicted as idle. The stream ends when
// the session is gone anyway, so the browser reconnects to a fresh one.
type EventsHandler struct {
	sessions  SessionStore
	keepAlive time.Duration
}

func NewEventsHandler(sessions SessionStore, keepAlive time.Duration) EventsHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAliveInterval
	}
	return EventsHandler{sessions: sessions, keepAlive: keepAlive}
}

func (h EventsHandler) CartEvents(w http.ResponseWriter, r *http.Request) {
	const op = "EventsHandler.CartEvents"
	log := slog.With("op", op)

	rc := http.NewResponseController(w)
	sf := storefrontFrom(r.Context())
	id := sessionIDFrom(r.Context())

	updates := make(chan domain.CartUpdate, 1)
	unsubscribe := sf.SubscribeCart(port.CartObserverFunc(
		func(u domain.CartUpdate) {
			for {
				select {
				case updates <- u:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		},
	))
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeCartEvent(w, toCart(sf.Cart())); err != nil {
		log.Debug("client gone", "err", err)
		return
	}
	if err := rc.Flush(); err != nil {
		log.Error("streaming unsupported", "err", err)
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case u := <-updates:
			err = writeCartEvent(w, cartUpdateToCart(u))
		case <-keepAlive.C:
			if !h.sessions.Touch(id) {
				log.Debug("session evicted, closing stream", "session", id)
				return
			}
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			log.Debug("client gone", "err", err)
			return
		}
	}
}

func writeCartEvent(w http.ResponseWriter, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
