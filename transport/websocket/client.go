package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client serialises writes: gorilla connections allow one concurrent writer.
type client struct {
	conn *websocket.Conn

	writeMutex sync.Mutex
}

func newClient(conn *websocket.Conn) *client {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &client{conn: conn}
}

func (that *client) send(action string, response Response) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err = that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.writeMutex.Lock()
			err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			that.writeMutex.Unlock()

			if err != nil {
				return
			}
		}
	}
}

func (that *client) close() {
	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	_ = that.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = that.conn.Close()
}
