// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package asvo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Connection state of a Notifier
type State int

const (
	Disconnected State = iota
	Connected
	Reconnecting
	Closed
)

var stateNames=[]string{"disconnected", "connected", "reconnecting", "closed"}

func (s State) String() string {
	if s<0 || int(s)>=len(stateNames) { return fmt.Sprintf("State(%d)", int(s)) }
	return stateNames[s]
}

// Notifier tuning
type NotifierOptions struct {
	PingInterval   time.Duration
	MaxRetries     int           // reconnect attempts per Recv
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultNotifierOptions() NotifierOptions {
	return NotifierOptions{PingInterval:30*time.Second, MaxRetries:3, InitialBackoff:5*time.Second, MaxBackoff:time.Minute}
}

// Receives job status messages over a websocket, reconnecting when the connection drops.
// Recv must not be called concurrently
type Notifier struct {
	cfg    Config
	opts   NotifierOptions
	log    *slog.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	session *Session

	done chan struct{}
	wg   sync.WaitGroup
}

// Logs in, opens the notification websocket and starts keepalive pings
func NewNotifier(ctx context.Context, cfg Config, opts NotifierOptions, log *slog.Logger) (*Notifier, error) {
	n:=&Notifier{
		cfg:    cfg,
		opts:   opts,
		log:    log,
		dialer: &websocket.Dialer{HandshakeTimeout:cfg.Timeout, TLSClientConfig:cfg.tlsConfig(), Proxy:http.ProxyFromEnvironment},
		done:   make(chan struct{}),
	}
	if err:=n.connect(ctx); err!=nil { return nil, err }
	if opts.PingInterval>0 {
		n.wg.Add(1)
		go n.pingLoop()
	}
	return n, nil
}

func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Logs in anew and dials the websocket, replacing any previous connection
func (n *Notifier) connect(ctx context.Context) error {
	s, err:=Login(ctx, n.cfg, n.log)
	if err!=nil { return err }
	header:=http.Header{}
	header.Set("Cookie", s.Cookie())
	conn, res, err:=n.dialer.DialContext(ctx, n.cfg.baseURL(true)+"/api/job_results", header)
	if res!=nil && res.Body!=nil { res.Body.Close() }
	if err!=nil {
		s.Close()
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state==Closed {
		conn.Close()
		s.Close()
		return ErrClosed
	}
	n.dropLocked()
	n.conn, n.session, n.state = conn, s, Connected
	n.log.Debug("job notifications connected", "host", n.cfg.Host)
	return nil
}

// Closes the current connection and session. Caller holds n.mu
func (n *Notifier) dropLocked() {
	if n.conn!=nil { n.conn.Close(); n.conn=nil }
	if n.session!=nil { n.session.Close(); n.session=nil }
}

func (n *Notifier) current() (*websocket.Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state==Closed { return nil, ErrClosed }
	return n.conn, nil
}

// Receives one JSON message. A dropped connection is re-established with exponential
// backoff, up to MaxRetries times. Fails with ErrNotConnected once retries are exhausted
// and with ErrClosed after Close
func (n *Notifier) Recv(ctx context.Context) (json.RawMessage, error) {
	var msg json.RawMessage
	op:=func() error {
		conn, err:=n.current()
		if err!=nil { return backoff.Permanent(err) }
		if conn==nil {
			if err:=n.connect(ctx); err!=nil {
				if errors.Is(err, ErrClosed) { return backoff.Permanent(err) }
				n.log.Warn("reconnecting job notifications failed", "error", err)
				return err
			}
			if conn, err=n.current(); err!=nil { return backoff.Permanent(err) }
		}

		stop:=context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
		_, data, err:=conn.ReadMessage()
		stop()
		if err!=nil {
			n.mu.Lock()
			if n.state==Closed {
				n.mu.Unlock()
				return backoff.Permanent(ErrClosed)
			}
			if n.conn==conn { n.dropLocked() }
			n.state=Reconnecting
			n.mu.Unlock()
			n.log.Warn("job notification connection lost", "error", err)
			return err
		}
		if !json.Valid(data) {
			return backoff.Permanent(fmt.Errorf("%w: invalid JSON message", ErrRequest))
		}
		msg=data
		return nil
	}

	b:=backoff.NewExponentialBackOff()
	b.InitialInterval=n.opts.InitialBackoff
	b.MaxInterval=n.opts.MaxBackoff
	b.MaxElapsedTime=0
	err:=backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(n.opts.MaxRetries)), ctx))
	if err==nil { return msg, nil }
	if errors.Is(err, ErrClosed) || errors.Is(err, ErrRequest) || ctx.Err()!=nil { return nil, err }

	n.mu.Lock()
	if n.state!=Closed { n.state=Disconnected }
	n.mu.Unlock()
	return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
}

func (n *Notifier) pingLoop() {
	defer n.wg.Done()
	t:=time.NewTicker(n.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-n.done:
			return
		case <-t.C:
			n.mu.Lock()
			conn:=n.conn
			n.mu.Unlock()
			if conn==nil { continue }
			if err:=conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err!=nil {
				n.log.Debug("ping failed", "error", err)
			}
		}
	}
}

// Closes the connection and stops all background work
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.state==Closed {
		n.mu.Unlock()
		return nil
	}
	n.state=Closed
	n.dropLocked()
	close(n.done)
	n.mu.Unlock()
	n.wg.Wait()
	return nil
}
