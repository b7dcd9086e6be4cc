// fastview implements a builder pattern to implement simple views:
// given an input data format, apply a transformation to a view-model,
// and then multiplex that data to one or more views whose element updates
// are pushed to web clients.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('x','123') means 'set attribute 'x' to 123. 'textContent' is a reserved key:
	// ('textContent','abc') means 'set ele.textContent to abc'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TextContent is the reserved Op key for replacing an element's text.
const TextContent = "textContent"

// ViewComponent implements server side views: Parse to add their initial form
// to the page template and Updates to obtain the chan by which ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component and adds it to the passed parent template, thus inheriting
	// or possibly extending its definition (func-map, etc), and returns the defined template's name.
	Parse(*template.Template) (string, error)
}
