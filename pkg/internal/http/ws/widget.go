package ws

import (
	"sync"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/hub"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	overlayQueueSize = 8
	writeTimeout     = 5 * time.Second
)

// overlayConn is one overlay connection. Every write happens on its writeLoop.
type overlayConn struct {
	conn     *websocket.Conn
	queue    chan []byte
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func newOverlayConn(conn *websocket.Conn) *overlayConn {
	return &overlayConn{
		conn:     conn,
		queue:    make(chan []byte, overlayQueueSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (v *overlayConn) Deliver(packet []byte) bool {
	select {
	case <-v.done:
		return false
	default:
	}

	select {
	case v.queue <- packet:
		return true
	default:
		return false
	}
}

func (v *overlayConn) Evict() {
	v.once.Do(func() {
		close(v.done)
	})
}

func (v *overlayConn) reply(event string, data any) {
	packet, err := models.NewPacket(event, data)
	if err != nil {
		return
	}
	v.Deliver(packet.Marshal())
}

func (v *overlayConn) writeLoop() {
	defer close(v.finished)
	for {
		select {
		case <-v.done:
			_ = v.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(writeTimeout),
			)
			_ = v.conn.Close()
			return
		case packet := <-v.queue:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, packet); err != nil {
				log.Debug().Err(err).Msg("Unable to write to overlay, closing...")
				v.Evict()
			}
		}
	}
}

// Listen serves one overlay connection until it leaves or its channel is closed.
func Listen(c *websocket.Conn) {
	sub := newOverlayConn(c)
	go sub.writeLoop()

	var leave func()
	defer func() {
		if leave != nil {
			leave()
		}
		sub.Evict()
		<-sub.finished
	}()

	for {
		mt, raw, err := c.ReadMessage()
		if err != nil {
			break
		} else if mt != websocket.TextMessage {
			continue
		}

		var packet models.Packet
		if err := jsoniter.Unmarshal(raw, &packet); err != nil {
			sub.reply(models.PacketError, "invalid packet")
			continue
		}

		switch packet.Event {
		case models.PacketJoin:
			var key string
			if err := jsoniter.Unmarshal(packet.Data, &key); err != nil {
				sub.reply(models.PacketError, "invalid token")
				continue
			}
			account, err := services.GetAccountByDistributionKey(key)
			if err != nil {
				sub.reply(models.PacketError, "invalid token")
				continue
			}
			if leave != nil {
				leave()
			}
			leave = hub.R.Join(account.DistributionKey, sub)
			sub.reply(models.PacketJoined, nil)
			log.Debug().Uint("account", account.ID).Msg("Overlay joined.")
		default:
			sub.reply(models.PacketError, "unknown event")
		}
	}
}
