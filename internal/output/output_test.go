package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestConsoleLines(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Line("Read: %v", 120)
	c.Success("Connected")
	c.Dim("(dry run)")
	c.Warn("careful")

	want := "Read: 120\nConnected\n(dry run)\ncareful\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, "publish", map[string]int{"amount": 120}); err != nil {
		t.Fatal(err)
	}

	var result JSONResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.OK || result.Command != "publish" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPrintJSONError(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONError(&buf, "publish", errors.New("could not connect"), ExitSystemError); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"ok": false`) || !strings.Contains(buf.String(), "could not connect") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
