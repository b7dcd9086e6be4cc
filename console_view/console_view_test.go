package console_view

import (
	"bytes"
	"context"
	"testing"

	"paddle/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConsoleView(t *testing.T) {
	Convey("When frames are rendered to a console", t, func() {
		var buf bytes.Buffer
		view := NewConsoleView(&buf)
		frame := models.Frame{
			Size:     3,
			Paddle:   0,
			Ball:     models.BallPosition{Row: 1, Column: 2},
			Score:    2,
			Episodes: 4,
			Mode:     "ai",
			Rule:     "sarsa",
		}

		Convey("The board, score and mode are drawn", func() {
			So(view.Render(frame), ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "Points: 2")
			So(out, ShouldContainSubstring, "Episodes: 4")
			So(out, ShouldContainSubstring, "Rule: sarsa")
			So(out, ShouldContainSubstring, "= . .")
		})

		Convey("Run drains frames until the channel closes", func() {
			frames := make(chan models.Frame, 2)
			frames <- frame
			frame.Score = 3
			frames <- frame
			close(frames)
			So(view.Run(context.Background(), frames), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "Points: 3")
		})
	})
}
