// Package pipeline runs one read → build → publish cycle.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/klytics/fuelkit/internal/history"
	"github.com/klytics/fuelkit/internal/message"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/output"
	"github.com/klytics/fuelkit/internal/reading"
)

// ValueReader returns the fuel reading for the current run.
type ValueReader interface {
	File() string
	Read() (*reading.Reading, error)
}

// Publisher delivers one payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Result describes a completed run.
type Result struct {
	Reading   *reading.Reading `json:"reading"`
	Status    message.Status   `json:"status"`
	Topic     string           `json:"topic"`
	Broker    string           `json:"broker,omitempty"`
	Payload   string           `json:"payload"`
	Published bool             `json:"published"`
}

// Runner wires the reader, the message builder and the publisher together.
type Runner struct {
	Reader    ValueReader
	Publisher Publisher
	Limit     float64
	Topic     string
	Broker    string
	History   *history.Log
	Console   *output.Console
	DryRun    bool
	Now       func() time.Time

	mu        sync.Mutex
	connected bool
}

// New returns a runner publishing through pub and reporting its connection
// states on console.
func New(reader ValueReader, pub *mqtt.Publisher, console *output.Console) *Runner {
	r := &Runner{
		Reader:    reader,
		Publisher: pub,
		Broker:    pub.Broker(),
		Console:   console,
	}
	pub.OnState = r.reportState
	return r
}

// Run reads the value, builds the status message and publishes it. Steps run
// strictly in order; the first failure ends the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	console := r.Console
	if console == nil {
		console = output.NewConsole(nil)
	}

	console.Line("%s", r.Reader.File())
	rd, err := r.Reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	console.Line("Read: %s", formatNumber(rd.Value))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := message.Build(r.Limit, rd.Value)
	payload, err := message.Encode(status)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	result := &Result{
		Reading: rd,
		Status:  status,
		Topic:   r.Topic,
		Broker:  r.Broker,
		Payload: string(payload),
	}

	if r.DryRun {
		console.Dim("Dry run: would publish %s to %s", payload, r.Topic)
		return result, nil
	}

	if err := r.Publisher.Publish(ctx, r.Topic, payload); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("publish: %w", err)
	}
	result.Published = true

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	r.History.Append(history.Entry{
		Timestamp: now(),
		Path:      rd.Path,
		Sheet:     rd.Sheet,
		Cell:      rd.Location.String(),
		Topic:     r.Topic,
		Broker:    r.Broker,
		Limit:     status.Limit,
		Left:      status.Left,
		Amount:    status.Amount,
	})

	return result, nil
}

func (r *Runner) reportState(s mqtt.State) {
	if r.Console == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch s {
	case mqtt.StateConnecting:
		r.Console.Line("Connecting...")
	case mqtt.StateConnected:
		r.connected = true
		r.Console.Success("Connected to %s", r.Broker)
	case mqtt.StatePublished:
		r.Console.Line("Message published to %s", r.Topic)
	case mqtt.StateDisconnected:
		if r.connected {
			r.Console.Line("Disconnected")
		}
		r.connected = false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
