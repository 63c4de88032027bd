package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/klytics/fuelkit/internal/formats/xlsx"
	"github.com/klytics/fuelkit/internal/history"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/output"
	"github.com/klytics/fuelkit/internal/reading"
)

type recordingPublisher struct {
	err      error
	calls    int
	topic    string
	payload  string
	blockCtx bool
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.calls++
	if p.blockCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.payload = string(payload)
	return nil
}

type staticReader struct {
	rd  *reading.Reading
	err error
}

func (s staticReader) File() string {
	if s.rd == nil {
		return "/home/user/OneDrive/Gasolina.xlsx"
	}
	return s.rd.Path
}

func (s staticReader) Read() (*reading.Reading, error) { return s.rd, s.err }

func marchSheet(t *testing.T) string {
	t.Helper()
	rows := [][]string{
		{"Jan", "", "", "", "", "80"},
		{"Feb", "", "", "", "", "95"},
		{"Mar", "", "", "", "", "120"},
	}
	path := filepath.Join(t.TempDir(), "Gasolina.xlsx")
	if err := xlsx.WriteFile(&xlsx.Workbook{Sheets: []xlsx.Sheet{{Name: "Sheet1", Rows: rows}}}, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newConsole() (*output.Console, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	return output.NewConsole(&buf), &buf
}

func TestRunMarch(t *testing.T) {
	path := marchSheet(t)
	console, out := newConsole()
	pub := &recordingPublisher{}
	histPath := filepath.Join(t.TempDir(), "history.jsonl")

	r := &Runner{
		Reader: &reading.Reader{
			Path:   path,
			Column: reading.DefaultColumn,
			Now:    func() time.Time { return time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC) },
		},
		Publisher: pub,
		Limit:     210,
		Topic:     "car/bmw/fuel_load",
		History:   history.NewLog(histPath, true),
		Console:   console,
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if pub.calls != 1 {
		t.Fatalf("expected 1 publish, got %d", pub.calls)
	}
	if pub.topic != "car/bmw/fuel_load" {
		t.Errorf("topic = %q", pub.topic)
	}
	if want := `{"limit":210,"left":90,"amount":120}`; pub.payload != want {
		t.Errorf("payload = %s, want %s", pub.payload, want)
	}
	if !result.Published || result.Reading.Location.Row != 2 {
		t.Errorf("unexpected result: %+v", result)
	}

	text := out.String()
	if !strings.Contains(text, path) || !strings.Contains(text, "Read: 120") {
		t.Errorf("console output missing path or value:\n%s", text)
	}

	entries, err := history.ReadEntries(histPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Cell != "F3" || entries[0].Left != 90 {
		t.Errorf("unexpected history: %+v", entries)
	}
}

func TestRunDryRunDoesNotPublish(t *testing.T) {
	console, out := newConsole()
	pub := &recordingPublisher{}
	r := &Runner{
		Reader:    staticReader{rd: &reading.Reading{Path: "x.xlsx", Value: 10}},
		Publisher: pub,
		Limit:     210,
		Topic:     "t",
		Console:   console,
		DryRun:    true,
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pub.calls != 0 {
		t.Error("dry run must not publish")
	}
	if result.Published {
		t.Error("dry run result should not be marked published")
	}
	if result.Payload != `{"limit":210,"left":200,"amount":10}` {
		t.Errorf("payload = %s", result.Payload)
	}
	if !strings.Contains(out.String(), "Dry run") {
		t.Errorf("expected dry run notice, got %q", out.String())
	}
}

func TestRunReadFailureStopsBeforePublish(t *testing.T) {
	console, _ := newConsole()
	pub := &recordingPublisher{}
	r := &Runner{
		Reader:    staticReader{err: reading.ErrNotNumeric},
		Publisher: pub,
		Console:   console,
	}

	_, err := r.Run(context.Background())
	if !errors.Is(err, reading.ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if pub.calls != 0 {
		t.Error("publish must not run after a read failure")
	}
}

func TestRunPrintsPathBeforeRead(t *testing.T) {
	console, out := newConsole()
	missing := filepath.Join(t.TempDir(), "Gasolina.xlsx")
	r := &Runner{
		Reader:    &reading.Reader{Path: missing, Column: reading.DefaultColumn},
		Publisher: &recordingPublisher{},
		Console:   console,
	}

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for a missing spreadsheet")
	}
	if out.String() != missing+"\n" {
		t.Errorf("expected only the path before the failure, got %q", out.String())
	}
}

func TestRunBrokerUnreachable(t *testing.T) {
	console, _ := newConsole()
	histPath := filepath.Join(t.TempDir(), "history.jsonl")
	pub := &recordingPublisher{err: mqtt.ErrConnect}
	r := &Runner{
		Reader:    staticReader{rd: &reading.Reading{Path: "x.xlsx", Value: 10}},
		Publisher: pub,
		Topic:     "t",
		History:   history.NewLog(histPath, true),
		Console:   console,
	}

	_, err := r.Run(context.Background())
	if !errors.Is(err, mqtt.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if history.Size(histPath) != 0 {
		t.Error("failed publish must not be recorded")
	}
}

func TestRunInterrupted(t *testing.T) {
	console, _ := newConsole()
	pub := &recordingPublisher{blockCtx: true}
	r := &Runner{
		Reader:    staticReader{rd: &reading.Reading{Path: "x.xlsx", Value: 10}},
		Publisher: pub,
		Topic:     "t",
		Console:   console,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReportState(t *testing.T) {
	console, out := newConsole()
	r := &Runner{Console: console, Broker: "tcp://localhost:1883", Topic: "car/bmw/fuel_load"}

	for _, s := range []mqtt.State{mqtt.StateConnecting, mqtt.StateConnected, mqtt.StatePublished, mqtt.StateDisconnected} {
		r.reportState(s)
	}

	want := "Connecting...\nConnected to tcp://localhost:1883\nMessage published to car/bmw/fuel_load\nDisconnected\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestReportStateConnectFailure(t *testing.T) {
	console, out := newConsole()
	r := &Runner{Console: console}

	r.reportState(mqtt.StateConnecting)
	r.reportState(mqtt.StateDisconnected)

	if strings.Contains(out.String(), "Disconnected") {
		t.Errorf("no disconnect line expected without a connection, got %q", out.String())
	}
}

func TestNewWiresStates(t *testing.T) {
	console, _ := newConsole()
	pub := mqtt.NewPublisher(mqtt.Options{Broker: "tcp://localhost:1883"})
	r := New(staticReader{}, pub, console)

	if pub.OnState == nil {
		t.Error("New should register a state observer")
	}
	if r.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker = %q", r.Broker)
	}
}
