// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console writes human-readable status lines.
type Console struct {
	dest io.Writer
	ok   *color.Color
	dim  *color.Color
	warn *color.Color
}

// NewConsole creates a console writing to dest, or stdout when dest is nil.
func NewConsole(dest io.Writer) *Console {
	if dest == nil {
		dest = os.Stdout
	}
	return &Console{
		dest: dest,
		ok:   color.New(color.FgGreen),
		dim:  color.New(color.FgHiBlack),
		warn: color.New(color.FgYellow),
	}
}

// Line writes a plain line.
func (c *Console) Line(format string, args ...interface{}) {
	fmt.Fprintf(c.dest, format+"\n", args...)
}

// Success writes a line in green.
func (c *Console) Success(format string, args ...interface{}) {
	c.ok.Fprintf(c.dest, format+"\n", args...)
}

// Dim writes a de-emphasized line.
func (c *Console) Dim(format string, args ...interface{}) {
	c.dim.Fprintf(c.dest, format+"\n", args...)
}

// Warn writes a line in yellow.
func (c *Console) Warn(format string, args ...interface{}) {
	c.warn.Fprintf(c.dest, format+"\n", args...)
}

// WriteJSON encodes a value as pretty-printed JSON.
func (c *Console) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(c.dest)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteError writes an error message to stderr.
func WriteError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
