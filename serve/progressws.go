package serve

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"spritemov/notify"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second

	// Messages queued per client before it is considered too slow and
	// messages are dropped.
	clientBuffer = 64
)

// Message types pushed over the progress socket.
const (
	MessageProgress     = "progress"
	MessageResult       = "result"
	MessageVThumb       = "vthumb"
	MessageDeleted      = "deleted"
	MessageNotification = "notification"
)

type ProgressMessage struct {
	Type      string  `json:"type"`
	JobID     string  `json:"job_id"`
	State     string  `json:"state,omitempty"`
	Percent   float64 `json:"percent"`
	Succeeded bool    `json:"succeeded,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// ProgressUpdater fans job events out to every connected websocket.
type ProgressUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	pubc     chan []byte
}

func NewProgressUpdater() *ProgressUpdater {
	m := &ProgressUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:   make(map[chan []byte]bool),
		addc: make(chan chan []byte),
		delc: make(chan chan []byte),
		pubc: make(chan []byte, clientBuffer),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
			case c := <-m.delc:
				delete(m.cs, c)
			case b := <-m.pubc:
				for c := range m.cs {
					select {
					case c <- b:
					default:
						// Slow client; it will catch up from the next message.
					}
				}
			}
		}
	}()
	return m
}

// Publish queues msg for all connected clients.
func (m *ProgressUpdater) Publish(msg *ProgressMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to encode progress message: %v", err)
		return
	}
	m.pubc <- b
}

// Notify forwards a render notification to browsers.
func (m *ProgressUpdater) Notify(n *notify.Notification) error {
	m.Publish(&ProgressMessage{
		Type:      MessageNotification,
		JobID:     n.JobID,
		Succeeded: n.Succeeded,
		Message:   n.Message,
	})
	return nil
}

func (m *ProgressUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for progress stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *ProgressUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to progress socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from progress socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	c := make(chan []byte, clientBuffer)
	m.addc <- c
	defer func() { m.delc <- c }()

	// Incoming messages are ignored, but reading is required to process
	// control frames and notice disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b := <-c:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
