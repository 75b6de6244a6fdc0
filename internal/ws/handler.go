package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
	"github.com/DoyleJ11/hero-assign-backend/internal/feed"
	"github.com/DoyleJ11/hero-assign-backend/internal/types"
	pub "github.com/DoyleJ11/hero-assign-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler streams status snapshots from f to the connected client.
// Cross-origin upgrades are refused unless the origin host matches one of
// origins (path.Match patterns such as "localhost:*").
func Handler(f *feed.Feed, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("client_id", clientID))

		out := make(chan feed.Snapshot, 8)
		select {
		case f.Inbox() <- feed.Join{ClientID: clientID, Outbox: out}:
		case <-f.Done():
			conn.Close(websocket.StatusGoingAway, "feed closed")
			return
		}
		defer func() {
			select {
			case f.Inbox() <- feed.Leave{ClientID: clientID}:
			case <-f.Done():
			}
		}()
		log.Debug("watcher joined")

		// last holds the most recent snapshot for Refresh requests.
		var (
			mu   sync.Mutex
			last *feed.Snapshot
		)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// Feed dropped us or shut down.
						conn.Close(websocket.StatusGoingAway, "feed closed")
						return
					}
					mu.Lock()
					last = &snap
					mu.Unlock()
					if err := write(writeCtx, conn, snapshotMessage(snap)); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("watcher read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			switch cm.Type {
			case types.MsgRefresh:
				mu.Lock()
				snap := last
				mu.Unlock()
				if snap != nil {
					_ = write(writeCtx, conn, snapshotMessage(*snap))
				}
			default:
				_ = write(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func snapshotMessage(snap feed.Snapshot) types.ServerMessage {
	st := toWire(snap.Status)
	return types.ServerMessage{Type: types.MsgStatusSnapshot, Version: snap.Version, Status: &st}
}

func toWire(st engine.Status) pub.StatusResponse {
	assignments := st.Assignments
	if assignments == nil {
		assignments = map[string]string{}
	}
	return pub.StatusResponse{
		Total:       st.Total,
		Assigned:    st.Assigned,
		Remaining:   st.Remaining,
		Assignments: assignments,
	}
}
