// Package mqtt publishes fuel status messages over a one-shot broker connection.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrConnect wraps every failure to establish the broker connection.
var ErrConnect = errors.New("could not connect to broker")

// State is a step in the publish lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePublished:
		return "published"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures the broker connection.
type Options struct {
	Broker         string // server URL, see BrokerURL
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	Logger         *log.Logger
}

// Publisher sends one message per connection: connect, publish once when the
// broker acknowledges the connection, then disconnect.
type Publisher struct {
	opts Options

	// OnState is called on every lifecycle transition, from the goroutine
	// that performed it.
	OnState func(State)

	newClient func(*paho.ClientOptions) paho.Client

	mu    sync.Mutex
	state State
}

// NewPublisher creates a publisher for the given options.
func NewPublisher(opts Options) *Publisher {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Publisher{
		opts:      opts,
		newClient: paho.NewClient,
	}
}

// Broker returns the server URL the publisher connects to.
func (p *Publisher) Broker() string {
	return p.opts.Broker
}

// State returns the current lifecycle state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Publisher) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.opts.Logger.Printf("state -> %s", s)
	if p.OnState != nil {
		p.OnState(s)
	}
}

// Publish delivers payload to topic and returns once the connection is closed.
// A connection failure returns an error wrapping ErrConnect and nothing is
// published. Cancelling ctx closes any open connection and returns ctx.Err().
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	done := make(chan error, 1)

	var (
		once     sync.Once
		closedMu sync.Mutex
		closed   bool
	)
	disconnect := func(c paho.Client) {
		once.Do(func() {
			closedMu.Lock()
			closed = true
			closedMu.Unlock()
			c.Disconnect(250)
			p.setState(StateDisconnected)
		})
	}

	clientOpts := p.clientOptions()
	clientOpts.SetOnConnectHandler(func(c paho.Client) {
		closedMu.Lock()
		if closed {
			// Connected after the caller gave up.
			closedMu.Unlock()
			c.Disconnect(250)
			return
		}
		p.setState(StateConnected)
		closedMu.Unlock()

		token := c.Publish(topic, p.opts.QoS, p.opts.Retain, payload)
		token.Wait()
		err := token.Error()
		if err != nil {
			err = fmt.Errorf("publish to %s failed: %w", topic, err)
		} else {
			p.setState(StatePublished)
		}

		disconnect(c)
		done <- err
	})

	client := p.newClient(clientOpts)

	p.setState(StateConnecting)
	token := client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.setState(StateDisconnected)
			return fmt.Errorf("%w at %s: %v", ErrConnect, p.opts.Broker, err)
		}
	case <-ctx.Done():
		disconnect(client)
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		disconnect(client)
		return ctx.Err()
	}
}

// Probe opens a connection and closes it again without publishing.
func Probe(ctx context.Context, opts Options) error {
	p := NewPublisher(opts)
	return p.probe(ctx)
}

func (p *Publisher) probe(ctx context.Context) error {
	client := p.newClient(p.clientOptions())
	token := client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w at %s: %v", ErrConnect, p.opts.Broker, err)
		}
	case <-ctx.Done():
		go func() {
			<-token.Done()
			if token.Error() == nil {
				client.Disconnect(250)
			}
		}()
		return ctx.Err()
	}
	client.Disconnect(250)
	return nil
}

func (p *Publisher) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(p.opts.Broker)
	opts.SetClientID(p.opts.ClientID)
	if p.opts.Username != "" {
		opts.SetUsername(p.opts.Username)
	}
	if p.opts.Password != "" {
		opts.SetPassword(p.opts.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(p.opts.ConnectTimeout)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.opts.Logger.Printf("connection lost: %v", err)
	})
	return opts
}

// EnableLogging routes the paho client's internal logs to logger.
func EnableLogging(logger *log.Logger, debug bool) {
	paho.ERROR = logger
	paho.CRITICAL = logger
	paho.WARN = logger
	if debug {
		paho.DEBUG = logger
	}
}
