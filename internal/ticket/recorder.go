package ticket

import (
	"fmt"
	"io"
	"strings"
)

// Op identifies a recorded draw command.
type Op string

const (
	OpText    Op = "text"
	OpBlock   Op = "block"
	OpRect    Op = "rect"
	OpImage   Op = "image"
	OpBarcode Op = "barcode"
)

// Command is one recorded draw call.
type Command struct {
	Region Region
	Op     Op
	Box    Box
	Text   string
	Font   Font
}

// Recorder is an in-memory Document that keeps every command. Its
// serialized form is a plain text listing, one command per line.
type Recorder struct {
	region   Region
	font     Font
	Commands []Command
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) BeginRegion(reg Region) { r.region = reg }

func (r *Recorder) SetFont(f Font) { r.font = f }

func (r *Recorder) Text(b Box, s string, _ Align, _ bool) { r.add(OpText, b, s) }

func (r *Recorder) TextBlock(b Box, _ float64, s string, _ Align, _ bool) { r.add(OpBlock, b, s) }

func (r *Recorder) Rect(b Box) { r.add(OpRect, b, "") }

func (r *Recorder) Image(b Box, img *Image) { r.add(OpImage, b, img.Name) }

func (r *Recorder) Barcode(b Box, payload string) error {
	if _, _, err := code128Bars(payload); err != nil {
		return err
	}
	r.add(OpBarcode, b, payload)
	return nil
}

func (r *Recorder) add(op Op, b Box, s string) {
	r.Commands = append(r.Commands, Command{Region: r.region, Op: op, Box: b, Text: s, Font: r.font})
}

// WriteTo writes the command listing.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, c := range r.Commands {
		fmt.Fprintf(&sb, "%s %s %.1f %.1f %.1f %.1f %q\n", c.Region, c.Op, c.Box.X, c.Box.Y, c.Box.W, c.Box.H, c.Text)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Texts returns the text of every command in region, in draw order.
func (r *Recorder) Texts(reg Region) []string {
	var out []string
	for _, c := range r.Commands {
		if c.Region == reg && c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

// InRegion returns the commands tagged with reg.
func (r *Recorder) InRegion(reg Region) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Region == reg {
			out = append(out, c)
		}
	}
	return out
}
