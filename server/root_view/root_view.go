package root_view

import (
	"context"
	"fmt"
	"html/template"

	"paddle/models"
	"paddle/server/cell_views"
	"paddle/server/fastview"
)

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, and the key bindings.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView creates the main page and the views it contains. The value surface
// is only built when the initial frame carries a value table.
func NewRootView(
	ctx context.Context,
	initial models.Frame,
	frames <-chan models.Frame,
) (*RootView, error) {
	builder := fastview.NewViewBuilder[models.Frame, cell_views.Board]().
		WithContext(ctx).
		WithModel(frames, cell_views.Convert).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewBoardView(done, boards)
		})
	if initial.Values != nil {
		builder = builder.WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewValueFunction(done, initial.Size, boards)
		})
	}

	views, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("root view: %w", err)
	}

	return &RootView{
		views:   views.Components,
		updates: views.Updates,
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// It also sets up the func-map that the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
			"seq": func(n int) []int {
				s := make([]int, n)
				for i := range s {
					s[i] = i
				}
				return s
			},
		})

	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			err = parseErr
			return
		}
		viewTemplates = append(viewTemplates, tname)
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	// The main template bootstraps the rest: sets up client websocket and updates,
	// forwards arrow keys, aggregates views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>Paddle</title>
			<script>
				const ws = new WebSocket("ws://" + window.location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (ele === null) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}

				const keys = {"ArrowLeft": "left", "ArrowRight": "right"};
				document.addEventListener("keydown", function (event) {
					const key = keys[event.key];
					if (key === undefined || ws.readyState !== WebSocket.OPEN) {
						return;
					}
					event.preventDefault();
					ws.send(JSON.stringify({"Key": key}));
				});
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}
