package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"paddle/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValueFunction provides a view of the current greedy values as a 2d
// projection of the 3d function (paddle, ball, value).
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate
	proj    projection
}

// projection holds the isometric view parameters, fixed by the grid size.
type projection struct {
	width, height float64 // canvas size in pixels
	xyscale       float64 // pixels per x or y unit
	zscale        float64 // pixels per z unit
	sinAng        float64
	cosAng        float64
}

// ang is the angle of the x and y axes (30°).
const ang = math.Pi / 6

func newProjection(size int) projection {
	return projection{
		width:   float64(size * CELL_PX),
		height:  float64(size * CELL_PX),
		xyscale: CELL_PX,
		// Values live in [-1,1]; exaggerate them so the surface has relief.
		zscale: CELL_PX * 3,
		sinAng: math.Sin(ang),
		cosAng: math.Cos(ang),
	}
}

// NewValueFunction returns the surface view for a grid of the passed size.
func NewValueFunction(
	done <-chan struct{},
	size int,
	boards <-chan Board,
) (vf *ValueFunction) {
	vf = &ValueFunction{
		id:   "valuefunction",
		proj: newProjection(size),
	}
	vf.updates = channerics.Convert(done, boards, vf.onUpdate)
	return
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

// project applies an isometric projection to the passed point.
func (proj projection) project(x, y, z float64) (float64, float64) {
	sx := (x - y) * proj.cosAng * proj.xyscale
	sy := (x+y)*proj.sinAng*proj.xyscale - z*proj.zscale
	return sx, sy
}

// Returns an svg polygon describing these four adjacent cells.
// Cell-A is bottom left, Cell-B is top left, Cell-C is top right, and Cell-D is bottom right.
func (proj projection) makeFuncPolygon(
	id string,
	cellA Cell,
	cellB Cell,
	cellC Cell,
	cellD Cell,
) (fp *funcPolygon) {
	fp = &funcPolygon{
		Id: id,
	}
	fp.ax, fp.ay = proj.project(float64(cellA.X), float64(cellA.Y), cellA.Max)
	fp.bx, fp.by = proj.project(float64(cellB.X), float64(cellB.Y), cellB.Max)
	fp.cx, fp.cy = proj.project(float64(cellC.X), float64(cellC.Y), cellC.Max)
	fp.dx, fp.dy = proj.project(float64(cellD.X), float64(cellD.Y), cellD.Max)
	return
}

func polygonId(cell Cell) string {
	return fmt.Sprintf("%d-%d-value-polygon", cell.X, cell.Y)
}

type funcPolygon struct {
	Id     string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// String returns a string suitable for the svg-polygon 'points' attribute.
// The values are truncated to ints.
func (fp *funcPolygon) String() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func (fp *funcPolygon) MinX() float64 {
	return min(fp.ax, fp.bx, fp.cx, fp.dx)
}

func (fp *funcPolygon) MinY() float64 {
	return min(fp.ay, fp.by, fp.cy, fp.dy)
}

func (fp *funcPolygon) MaxX() float64 {
	return max(fp.ax, fp.bx, fp.cx, fp.dx)
}

func (fp *funcPolygon) MaxY() float64 {
	return max(fp.ay, fp.by, fp.cy, fp.dy)
}

// forEachPolygon visits every quad of adjacent cells. The order forms a surface
// by letting later polygons obscure prior ones.
func forEachPolygon(cells [][]Cell, fn func(cellA, cellB, cellC, cellD Cell)) {
	for ri := 0; ri < len(cells)-1; ri++ {
		row := cells[ri]
		for ci := len(row) - 2; ci >= 0; ci-- {
			fn(cells[ri+1][ci], cells[ri][ci], cells[ri][ci+1], cells[ri+1][ci+1])
		}
	}
}

// Returns the set of view updates needed for the view to reflect current values.
func (vf *ValueFunction) onUpdate(
	board Board,
) (ops []fastview.EleUpdate) {
	cells := board.Values
	if len(cells) < 2 {
		return nil
	}

	// Each polygon is shaded with the average of its four values, relative to the
	// extremes of the whole surface.
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	for _, row := range cells {
		for _, cell := range row {
			minVal = math.Min(minVal, cell.Max)
			maxVal = math.Max(maxVal, cell.Max)
		}
	}

	// First build up the polygons, so we can later center their svg coordinates within the view.
	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	forEachPolygon(cells, func(cellA, cellB, cellC, cellD Cell) {
		polygon := vf.proj.makeFuncPolygon(polygonId(cellB), cellA, cellB, cellC, cellD)

		xmin = math.Min(xmin, polygon.MinX())
		xmax = math.Max(xmax, polygon.MaxX())
		ymin = math.Min(ymin, polygon.MinY())
		ymax = math.Max(ymax, polygon.MaxY())

		avgVal := (cellA.Max + cellB.Max + cellC.Max + cellD.Max) / 4
		ops = append(ops, fastview.EleUpdate{
			EleId: polygon.Id,
			Ops: []fastview.Op{
				{
					Key:   "points",
					Value: polygon.String(),
				},
				{
					Key:   "fill",
					Value: getRGBFill(avgVal, minVal, maxVal),
				},
			},
		})
	})

	// Scale down by the maximum required to fit the full plot in view, but only if needed (when scaler < 1.0)
	scaler := math.Min(
		math.Min(
			math.Abs(vf.proj.width/(xmax-xmin)),
			math.Abs(vf.proj.height/(ymax-ymin)),
		),
		1.0,
	)

	ops = append(ops, fastview.EleUpdate{
		EleId: vf.id + "-group",
		Ops: []fastview.Op{
			{
				Key:   "transform",
				Value: fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin)),
			},
		},
	})

	return
}

// Returns an RGB value defined by where avgVal lies along the number line between minVal and maxVal:
// red at the max, blue at the min.
func getRGBFill(avgVal, minVal, maxVal float64) string {
	redPct := 50
	if span := maxVal - minVal; span > 0 {
		redPct = int(math.Round(100.0 * (avgVal - minVal) / span))
	}
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse returns an svg of polygons plotting the value surface as a 2D projection.
func (vf *ValueFunction) Parse(
	t *template.Template,
) (name string, err error) {
	name = vf.id
	addedMap := template.FuncMap{
		"valuePolygons": vf.polygons,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		{{ if .Values }}
		<div style="padding:40px;">
			<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
				width="` + fmt.Sprintf("%d", int(vf.proj.width*2)) + `px"
				height="` + fmt.Sprintf("%d", int(vf.proj.height*2)) + `px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 3;">
				<g id="` + vf.id + "-group" + `" transform="translate(0 0)">
				{{ range valuePolygons .Values }}
					<polygon id="{{ .Id }}" fill="black" fill-opacity="1.0" points="{{ .String }}" />
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}
		{{ end }}`)
	return
}

// polygons lists the surface polygons in drawing order.
func (vf *ValueFunction) polygons(cells [][]Cell) (polys []*funcPolygon) {
	forEachPolygon(cells, func(cellA, cellB, cellC, cellD Cell) {
		polys = append(polys, vf.proj.makeFuncPolygon(polygonId(cellB), cellA, cellB, cellC, cellD))
	})
	return
}
