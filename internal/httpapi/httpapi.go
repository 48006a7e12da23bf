// Package httpapi wires the WebSocket upgrade route and a liveness route
// onto a gorilla/mux router.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gmackie/roomengine/internal/registry"
	"github.com/gmackie/roomengine/internal/session"
)

// NewRouter builds the HTTP router serving the WebSocket upgrade endpoint
// and a liveness check, for rooms hosting the given game type.
func NewRouter[S, V, A, C any, P comparable](reg *registry.Registry[S, V, A, C, P], log *logrus.Entry) *mux.Router {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Debug("failed to upgrade connection")
			return
		}
		sess := session.New[S, V, A, C, P](conn, reg, log)
		go sess.Run()
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
