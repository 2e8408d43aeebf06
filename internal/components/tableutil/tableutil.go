package tableutil

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// New returns a table writer using the style every listing in this module shares. Callers
// call Render to get the text out.
func New() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}
