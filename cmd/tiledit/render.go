package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

// column верхний видимый тайл столбца
type column struct {
	y     int
	entry tilemap.TileEntry
}

// visibleColumns выбирает для каждого столбца вьюпорта верхний тайл не выше level
func (a *app) visibleColumns(level int) map[vec.Vec2]column {
	codec := a.doc.Codec()
	rows := a.height - statusRows
	out := make(map[vec.Vec2]column)
	a.doc.Each(func(e tilemap.TileEntry) bool {
		x, y, z := codec.Decode(e.Key)
		if y > level || x < a.viewX || x >= a.viewX+a.width || z < a.viewZ || z >= a.viewZ+rows {
			return true
		}
		cell := vec.Vec2{X: x, Y: z}
		if c, ok := out[cell]; !ok || y > c.y {
			out[cell] = column{y: y, entry: e}
		}
		return true
	})
	return out
}

func (a *app) render() {
	a.screen.Clear()

	level := math.MaxInt32
	session := a.ctrl.Session()
	if session != nil {
		level = session.PlaneY()
	}

	for cell, c := range a.visibleColumns(level) {
		style := tcell.StyleDefault
		glyph := '#'
		if node, err := a.scene.Node(c.entry.Instance); err == nil {
			if node.Template.Color != "" {
				style = style.Foreground(tcell.GetColor(node.Template.Color))
			}
			if r := []rune(node.Template.Glyph); len(r) > 0 {
				glyph = r[0]
			}
			style = style.Bold(node.Highlighted)
		}
		if c.y < level && session != nil {
			style = style.Dim(true)
		}
		a.screen.SetContent(cell.X-a.viewX, cell.Y-a.viewZ, glyph, nil, style)
	}

	if session != nil {
		a.renderSelection()
	}
	a.renderStatus()
	a.screen.Show()
}

// renderSelection накладывает прямоугольник выделения или курсор
func (a *app) renderSelection() {
	s := a.ctrl.Session()
	sel := s.Selection()
	overlay := tcell.StyleDefault.Reverse(true)
	if s.Deleting() {
		overlay = overlay.Foreground(tcell.ColorRed)
	}
	lo, hi := sel.Min, sel.Max()
	for z := lo.Z; z <= hi.Z; z++ {
		for x := lo.X; x <= hi.X; x++ {
			sx, sy := x-a.viewX, z-a.viewZ
			if sx < 0 || sx >= a.width || sy < 0 || sy >= a.height-statusRows {
				continue
			}
			r, comb, _, _ := a.screen.GetContent(sx, sy)
			if r == 0 {
				r = ' '
			}
			a.screen.SetContent(sx, sy, r, comb, overlay)
		}
	}
}

func (a *app) renderStatus() {
	mode := "просмотр"
	info := ""
	if s := a.ctrl.Session(); s != nil {
		mode = s.Mode().String()
		info = fmt.Sprintf(" y=%d шаблон=%s ориентация=%s", s.PlaneY(), s.SelectedTemplate(), s.SelectedOrientation().Glyph())
	}
	dirty := ""
	if a.doc.Dirty() {
		dirty = "*"
	}
	line := fmt.Sprintf("%s%s | %s%s | тайлов=%d размер=%g вид=(%d,%d)",
		a.doc.ID().String()[:8], dirty, mode, info, a.doc.Count(), a.doc.TileSize(), a.viewX, a.viewZ)
	a.drawText(0, a.height-2, line, tcell.StyleDefault.Reverse(true))
	a.drawText(0, a.height-1, a.status, tcell.StyleDefault)
}

func (a *app) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= a.width {
			return
		}
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < a.width; x++ {
		a.screen.SetContent(x, y, ' ', nil, style)
	}
}
