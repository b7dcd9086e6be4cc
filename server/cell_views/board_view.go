package cell_views

import (
	"fmt"
	"html/template"
	"strconv"

	"paddle/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// BoardView draws the game: a grid of cells, the paddle on the bottom row, the ball,
// and the points overlay.
type BoardView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewBoardView(
	done <-chan struct{},
	boards <-chan Board,
) (bv *BoardView) {
	bv = &BoardView{id: "board"}
	bv.updates = channerics.Convert(done, boards, bv.onUpdate)
	return
}

func (bv *BoardView) Updates() <-chan []fastview.EleUpdate {
	return bv.updates
}

func (bv *BoardView) eleId(name string) string {
	return bv.id + "-" + name
}

// onUpdate moves the paddle and ball, and rewrites the overlay text.
func (bv *BoardView) onUpdate(board Board) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: bv.eleId("paddle"),
			Ops: []fastview.Op{
				{Key: "x", Value: strconv.Itoa(board.Paddle * CELL_PX)},
			},
		},
		{
			EleId: bv.eleId("ball"),
			Ops: []fastview.Op{
				{Key: "x", Value: strconv.Itoa(board.BallX * CELL_PX)},
				{Key: "y", Value: strconv.Itoa(board.BallY * CELL_PX)},
			},
		},
		{
			EleId: bv.eleId("points"),
			Ops: []fastview.Op{
				{Key: fastview.TextContent, Value: pointsText(board)},
			},
		},
		{
			EleId: bv.eleId("episodes"),
			Ops: []fastview.Op{
				{Key: fastview.TextContent, Value: episodesText(board)},
			},
		},
	}
}

func pointsText(board Board) string {
	return fmt.Sprintf("Points: %d", board.Score)
}

func episodesText(board Board) string {
	text := fmt.Sprintf("Episodes: %d  Mode: %s", board.Episodes, board.Mode)
	if board.Rule != "" {
		text += "  Rule: " + board.Rule
	}
	return text
}

// Parse defines the board's svg, drawn at the board's initial state.
func (bv *BoardView) Parse(
	t *template.Template,
) (name string, err error) {
	name = bv.id
	cellPx := strconv.Itoa(CELL_PX)
	addedMap := template.FuncMap{
		"pointsText":   pointsText,
		"episodesText": episodesText,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		{{ $cell := ` + cellPx + ` }}
		{{ $dim := mult .Size $cell }}
		<div style="padding:20px; font-family:monospace;">
			<svg id="` + bv.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ $dim }}px"
				height="{{ $dim }}px"
				style="shape-rendering: crispEdges; background: black;">
				{{ range $y := seq .Size }}
					{{ range $x := seq $.Size }}
						<rect x="{{ mult $x $cell }}" y="{{ mult $y $cell }}" width="{{ $cell }}" height="{{ $cell }}"
							fill="black" stroke="dimgray" stroke-width="1" />
					{{ end }}
				{{ end }}
				<rect id="` + bv.eleId("paddle") + `"
					x="{{ mult .Paddle $cell }}" y="{{ mult (sub .Size 1) $cell }}"
					width="{{ $cell }}" height="{{ $cell }}" fill="white" />
				<rect id="` + bv.eleId("ball") + `"
					x="{{ mult .BallX $cell }}" y="{{ mult .BallY $cell }}"
					width="{{ $cell }}" height="{{ $cell }}" fill="red" />
				<text id="` + bv.eleId("points") + `" x="6" y="18" fill="white">{{ pointsText . }}</text>
			</svg>
			<div id="` + bv.eleId("episodes") + `">{{ episodesText . }}</div>
		</div>
		{{ end }}`)
	return
}
