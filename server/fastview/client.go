package fastview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer. Key presses are tiny.
	maxMessageSize = 512

	// The rate at which ele-updates will be sent to the client, so as not to overburden.
	// Faster than the game tick so that no frame is skipped at the default rate.
	pubResolution  = time.Millisecond * 50
	pingResolution = time.Millisecond * 200
	// Number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// MessageHandler receives each message read from a client. Returning an error
// tears down the client.
type MessageHandler func(msg []byte) error

// A Client publishes idempotent updates to a web client via websocket and
// passes the client's messages (key presses) back to the server.
type Client[T any] struct {
	id        string
	updates   <-chan T
	onMessage MessageHandler
	ws        *websock
	rootCtx   context.Context
}

// NewClient upgrades the request to a websocket and returns a client for sending
// ui updates. Items in the updates chan should represent idempotent update
// objects, such that intervening updates can be discarded when they are received
// too quickly (> pub-rate), and only sending the latest update is sufficient to
// specify the new client state. The onMessage handler may be nil, in which case
// client messages are read and discarded.
func NewClient[T any](
	updates <-chan T,
	onMessage MessageHandler,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	if onMessage == nil {
		onMessage = func(_ []byte) error { return nil }
	}

	return &Client[T]{
		id:        uuid.NewString(),
		updates:   updates,
		onMessage: onMessage,
		ws:        newWebSocket(ws),
		rootCtx:   r.Context(),
	}, nil
}

// ID returns the client's unique id, used to correlate log lines.
func (cli *Client[T]) ID() string {
	return cli.id
}

// Sync starts routines to publish incoming updates to the websocket and to read
// messages from it. Updates are published at a compiled rate; updates received
// faster than that rate are discarded.
// Sync returns nil upon client disconnect or an error if an unexpected error occurred.
// The websocket is closed before Sync returns.
func (cli *Client[T]) Sync() error {
	log.Printf("client %s: connected", cli.id)
	defer cli.ws.Close()

	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	// Any routine returning, with or without error, ends the session.
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.pingPong(groupCtx, pong)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		// Unblock the pending read.
		<-groupCtx.Done()
		_ = cli.ws.Conn().SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	if isClosure(err) {
		err = nil
	}
	log.Printf("client %s: disconnected", cli.id)
	return err
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This function requires that readMessages is running to ensure the pong handler is called.
func (cli *Client[T]) pingPong(ctx context.Context, pong <-chan struct{}) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if isError(err) {
					err = fmt.Errorf("ping failed: %T %v", err, err)
				}
			}
			return
		})
}

// readMessages passes each client message to the message handler.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		var msg []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, msg, readErr = ws.ReadMessage()
				return
			})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		if err = cli.onMessage(msg); err != nil {
			return fmt.Errorf("client %s: %w", cli.id, err)
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	lastSync := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case updates, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				return nil
			}
			// Drop updates when receiving too quickly.
			if time.Since(lastSync) < pubResolution {
				break
			}

			lastSync = time.Now()
			err := cli.ws.Write(
				ctx,
				func(ws *websocket.Conn) (writeErr error) {
					if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
						writeErr = fmt.Errorf("failed to set deadline: %T %w", writeErr, writeErr)
						return
					}

					if writeErr = ws.WriteJSON(updates); writeErr != nil {
						if isError(writeErr) {
							writeErr = fmt.Errorf("publish failed: %T %v", writeErr, writeErr)
						}
					}
					return
				})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline    = time.Second
	closeGracePeriod = time.Second
)

// websock serializes writes to the websocket, whose requirements are that there
// may be only one concurrent reader and writer at a time. There is only ever one
// reader, readMessages, so reads take a semaphore only to coordinate with Close.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close message and closes the websocket. This should only be
// called once no further writers exist.
func (sock *websock) Close() {
	sock.writeSem <- struct{}{}

	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket. Reads block
// until a message arrives, so unlike Write there is no congestion deadline.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
