package overlay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/proto"
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidToken  = errors.New("widget token does not match any broadcaster")
	ErrJoinRejected  = errors.New("server rejected the overlay")
	ErrStreamStopped = errors.New("server closed the overlay stream")
)

// Client follows the poll channel of one widget token.
type Client struct {
	Server  string
	Token   string
	Timeout time.Duration
}

func (v *Client) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return 5 * time.Second
}

// FetchInitial loads the snapshot to paint before the first push arrives.
func (v *Client) FetchInitial() (*proto.PollSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/widget/%s/poll", strings.TrimSuffix(v.Server, "/"), url.PathEscape(v.Token))

	agent := fiber.Get(endpoint).Timeout(v.timeout())
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to fetch initial poll: %w", errors.Join(errs...))
	}
	if status == fiber.StatusNotFound {
		return nil, ErrInvalidToken
	} else if status != fiber.StatusOK {
		return nil, fmt.Errorf("failed to fetch initial poll: server responded with status %d", status)
	}

	var resp struct {
		Poll *proto.PollSnapshot `json:"poll"`
	}
	if err := jsoniter.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse initial poll: %w", err)
	}
	return resp.Poll, nil
}

func (v *Client) streamURL() (string, error) {
	u, err := url.Parse(strings.TrimSuffix(v.Server, "/") + "/ws/widget")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Stream joins the channel and sends every pushed snapshot to out until ctx is done.
func (v *Client) Stream(ctx context.Context, out chan<- proto.PollSnapshot) error {
	endpoint, err := v.streamURL()
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, v.timeout())
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect overlay stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	join, _ := proto.NewPacket(proto.PacketJoin, v.Token)
	if err := conn.WriteMessage(websocket.TextMessage, join.Marshal()); err != nil {
		return fmt.Errorf("failed to join overlay stream: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrStreamStopped, err)
		}

		var packet proto.Packet
		if err := jsoniter.Unmarshal(raw, &packet); err != nil {
			log.Warn().Err(err).Msg("Unable to parse overlay packet, skipping...")
			continue
		}

		switch packet.Event {
		case proto.PacketJoined:
			log.Info().Msg("Overlay joined the poll channel.")
		case proto.PacketError:
			var reason string
			_ = jsoniter.Unmarshal(packet.Data, &reason)
			return fmt.Errorf("%w: %s", ErrJoinRejected, reason)
		case proto.PacketPollUpdate:
			var snapshot proto.PollSnapshot
			if err := jsoniter.Unmarshal(packet.Data, &snapshot); err != nil {
				log.Warn().Err(err).Msg("Unable to parse poll update, skipping...")
				continue
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Follow paints the initial snapshot and then drives machine with pushed updates until ctx is done.
func (v *Client) Follow(ctx context.Context, machine *Machine) error {
	initial, err := v.FetchInitial()
	if err != nil {
		return err
	}
	if initial != nil {
		machine.Handle(*initial)
	}

	updates := make(chan proto.PollSnapshot, 8)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(updates)
		return v.Stream(ctx, updates)
	})
	eg.Go(func() error {
		return machine.Run(ctx, updates)
	})
	return eg.Wait()
}
