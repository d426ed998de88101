package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// readWait is how long the stream may stay silent before the connection is
	// considered dead. Binance pushes a 1s kline every second.
	readWait = 30 * time.Second

	// defaultReconnectDelay is the pause between connection attempts.
	defaultReconnectDelay = 3 * time.Second
)

// Kline is one update of the current candle.
type Kline struct {
	Symbol    string
	Close     float64
	Closed    bool // the candle is final and the next update starts a new one
	EventTime time.Time
}

// klineEvent is the raw payload of a <symbol>@kline_<interval> stream.
type klineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		Close  string `json:"c"`
		Closed bool   `json:"x"`
	} `json:"k"`
}

// KlineHandler receives decoded candle updates.
type KlineHandler func(Kline)

// KlineStream follows a Binance kline stream and reconnects when it drops.
type KlineStream struct {
	url            string
	logger         *zap.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

// NewKlineStream creates a stream for symbol and interval (e.g. "1s") under the
// websocket base URL.
func NewKlineStream(baseURL, symbol, interval string, logger *zap.Logger) *KlineStream {
	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
	return &KlineStream{
		url:            strings.TrimRight(baseURL, "/") + "/" + stream,
		logger:         logger.Named("stream").With(zap.String("stream", stream)),
		dialer:         &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		reconnectDelay: defaultReconnectDelay,
	}
}

// Run delivers candle updates to handler until ctx is cancelled. Connection
// failures are logged and retried after the reconnect delay.
func (s *KlineStream) Run(ctx context.Context, handler KlineHandler) error {
	for {
		err := s.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Price stream lost, reconnecting", zap.Duration("delay", s.reconnectDelay), zap.Error(err))

		select {
		case <-time.After(s.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// consume runs one connection until it fails.
func (s *KlineStream) consume(ctx context.Context, handler KlineHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	defer conn.Close()
	s.logger.Info("Price stream connected")

	// Unblock ReadMessage when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		k, err := decodeKline(data)
		if err != nil {
			s.logger.Warn("Dropping malformed stream message", zap.Error(err))
			continue
		}
		handler(k)
	}
}

func decodeKline(data []byte) (Kline, error) {
	var ev klineEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Kline{}, fmt.Errorf("failed to decode kline event: %w", err)
	}
	if ev.EventType != "kline" {
		return Kline{}, fmt.Errorf("unexpected event type %q", ev.EventType)
	}
	price, err := strconv.ParseFloat(ev.Kline.Close, 64)
	if err != nil {
		return Kline{}, fmt.Errorf("failed to parse close %q: %w", ev.Kline.Close, err)
	}
	return Kline{
		Symbol:    ev.Symbol,
		Close:     price,
		Closed:    ev.Kline.Closed,
		EventTime: time.UnixMilli(ev.EventTime),
	}, nil
}
