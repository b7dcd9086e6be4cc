// console_view redraws the board in place on a terminal, one frame at a time.
package console_view

import (
	"context"
	"fmt"
	"io"

	"paddle/models"
	"paddle/paddle_world"

	"github.com/gosuri/uilive"
	channerics "github.com/niceyeti/channerics/channels"
)

// ConsoleView renders frames to a terminal, overwriting the previous frame.
type ConsoleView struct {
	writer *uilive.Writer
}

// NewConsoleView returns a view writing to out.
func NewConsoleView(out io.Writer) *ConsoleView {
	writer := uilive.New()
	writer.Out = out
	return &ConsoleView{
		writer: writer,
	}
}

// Render draws a single frame and flushes it.
func (cv *ConsoleView) Render(frame models.Frame) error {
	paddle_world.ShowGrid(cv.writer, frame)
	fmt.Fprintf(cv.writer, "Episodes: %d  Mode: %s", frame.Episodes, frame.Mode)
	if frame.Rule != "" {
		fmt.Fprintf(cv.writer, "  Rule: %s", frame.Rule)
	}
	fmt.Fprintln(cv.writer)
	return cv.writer.Flush()
}

// Run renders frames until the channel closes or ctx is done.
func (cv *ConsoleView) Run(ctx context.Context, frames <-chan models.Frame) error {
	for frame := range channerics.OrDone(ctx.Done(), frames) {
		if err := cv.Render(frame); err != nil {
			return fmt.Errorf("console render: %w", err)
		}
	}
	return nil
}
