package main

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/tilemap-editor/internal/catalog"
	"github.com/annel0/tilemap-editor/internal/config"
	"github.com/annel0/tilemap-editor/internal/document"
	"github.com/annel0/tilemap-editor/internal/editor"
	"github.com/annel0/tilemap-editor/internal/generator"
	"github.com/annel0/tilemap-editor/internal/history"
	"github.com/annel0/tilemap-editor/internal/logging"
	"github.com/annel0/tilemap-editor/internal/scene"
	"github.com/annel0/tilemap-editor/internal/storage"
	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

// statusRows строки под вьюпортом
const statusRows = 2

// cameraHeight высота ортографической камеры над сеткой
const cameraHeight = 1e7

// app терминальный хост редактора: камера, ввод, отрисовка, команды
type app struct {
	cfg     *config.Config
	screen  tcell.Screen
	doc     *document.Document
	journal *history.Journal
	scene   *scene.Scene
	catalog *catalog.Catalog
	repo    storage.DocumentRepo
	ctrl    *editor.Controller

	width, height int
	viewX, viewZ  int

	pressed     tcell.ButtonMask
	lastPointer vec.Vec2Float
	panning     bool

	orientation tilemap.Orientation
	status      string
	log         *logging.Logger
}

func newApp(cfg *config.Config, doc *document.Document, journal *history.Journal, sc *scene.Scene, cat *catalog.Catalog, repo storage.DocumentRepo) (*app, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	a := &app{
		cfg:         cfg,
		screen:      screen,
		doc:         doc,
		journal:     journal,
		scene:       sc,
		catalog:     cat,
		repo:        repo,
		orientation: tilemap.Orientation(cfg.Editor.DefaultOrientation),
		log:         logging.GetEditorLogger(),
	}
	if !a.orientation.Valid() {
		a.orientation = tilemap.OrientationNorth
	}
	a.ctrl = editor.NewController(doc, a)
	a.width, a.height = screen.Size()
	a.viewX, a.viewZ = -a.width/2, -(a.height-statusRows)/2
	a.status = "Tab: редактирование, Ctrl+S: сохранить, Esc: выход"
	return a, nil
}

func (a *app) close() {
	a.screen.Fini()
}

// Camera реализует editor.Host: камера смотрит вниз, одна ячейка терминала: один тайл
func (a *app) Camera() (editor.Camera, bool) {
	if a.width == 0 || a.height <= statusRows {
		return nil, false
	}
	ts := a.doc.TileSize()
	return editor.TopDownCamera{
		Origin: mgl64.Vec2{float64(a.viewX) * ts, float64(a.viewZ) * ts},
		Scale:  1 / ts,
		Height: cameraHeight,
	}, true
}

// MarkDirty реализует editor.Host
func (a *app) MarkDirty() {
	a.doc.MarkDirty()
}

// SetHighlighted реализует editor.Host
func (a *app) SetHighlighted(handles []tilemap.InstanceHandle, on bool) {
	a.scene.SetHighlighted(handles, on)
}

// refreshOutlines прячет контуры экземпляров, созданных вне сессии (undo, пересборка)
func (a *app) refreshOutlines() {
	if a.ctrl.Editing() {
		a.scene.SetHighlighted(a.doc.Handles(), false)
	}
}

func (a *app) run(ctx context.Context) error {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	a.render()
	for {
		select {
		case <-ctx.Done():
			return a.saveIfDirty(context.Background())
		case ev, ok := <-events:
			if !ok {
				return a.saveIfDirty(ctx)
			}
			if quit := a.handle(ctx, ev); quit {
				return a.saveIfDirty(ctx)
			}
			a.render()
		}
	}
}

func (a *app) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.width, a.height = ev.Size()
		a.screen.Sync()
		a.dispatch(editor.Event{Kind: editor.EventLayout, Pointer: a.lastPointer})
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventKey:
		return a.handleKey(ctx, ev)
	}
	return false
}

// dispatch передаёт событие контроллеру и показывает ошибку коммита
func (a *app) dispatch(ev editor.Event) bool {
	consumed := a.ctrl.HandleEvent(ev)
	if s := a.ctrl.Session(); s != nil {
		if err := s.Err(); err != nil {
			a.status = err.Error()
		}
	}
	return consumed
}

func pointerButton(mask tcell.ButtonMask) editor.Button {
	switch {
	case mask&tcell.Button1 != 0:
		return editor.ButtonPrimary
	case mask&tcell.Button2 != 0:
		return editor.ButtonSecondary
	default:
		return editor.ButtonMiddle
	}
}

func (a *app) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pointer := vec.Vec2Float{X: float64(x), Y: float64(y)}
	pan := ev.Modifiers()&tcell.ModAlt != 0
	buttons := ev.Buttons() & (tcell.Button1 | tcell.Button2 | tcell.Button3)

	if ev.Buttons()&(tcell.WheelUp|tcell.WheelDown) != 0 {
		if !a.dispatch(editor.Event{Kind: editor.EventScroll, Pointer: pointer}) {
			if ev.Buttons()&tcell.WheelUp != 0 {
				a.viewZ--
			} else {
				a.viewZ++
			}
		}
		return
	}

	if y >= a.height-statusRows {
		a.pressed = buttons
		return
	}

	out := editor.Event{Pointer: pointer, PanModifier: pan}
	switch {
	case a.pressed == 0 && buttons != 0:
		out.Kind = editor.EventPointerDown
		out.Button = pointerButton(buttons)
	case a.pressed != 0 && buttons == 0:
		out.Kind = editor.EventPointerUp
		out.Button = pointerButton(a.pressed)
	default:
		out.Kind = editor.EventPointerMove
	}

	consumed := a.dispatch(out)
	if !consumed && (pan || buttons&tcell.Button3 != 0) && a.pressed != 0 && buttons != 0 {
		// Панорамирование протягиванием с модификатором или средней кнопкой
		a.viewX -= int(pointer.X - a.lastPointer.X)
		a.viewZ -= int(pointer.Y - a.lastPointer.Y)
	}
	a.pressed = buttons
	a.lastPointer = pointer
}

// isCtrl распознаёт Ctrl+буква в обоих представлениях tcell
func isCtrl(ev *tcell.EventKey, key tcell.Key, r rune) bool {
	if ev.Key() == key {
		return true
	}
	return ev.Key() == tcell.KeyRune && ev.Modifiers()&tcell.ModCtrl != 0 && ev.Rune() == r
}

func (a *app) key(k editor.Key) bool {
	return a.dispatch(editor.Event{Kind: editor.EventKeyDown, Key: k, Pointer: a.lastPointer})
}

func (a *app) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch {
	case ev.Key() == tcell.KeyEscape || isCtrl(ev, tcell.KeyCtrlC, 'c'):
		return true
	case isCtrl(ev, tcell.KeyCtrlZ, 'z'):
		a.undo(a.journal.Undo, "Отмена")
		return false
	case isCtrl(ev, tcell.KeyCtrlY, 'y'):
		a.undo(a.journal.Redo, "Повтор")
		return false
	case isCtrl(ev, tcell.KeyCtrlS, 's'):
		a.save(ctx)
		return false
	}

	switch ev.Key() {
	case tcell.KeyTab:
		a.key(editor.KeyToggleEdit)
		if s := a.ctrl.Session(); s != nil {
			_ = s.SetOrientation(a.orientation)
		}
	case tcell.KeyUp:
		if !a.key(editor.KeyRaise) {
			a.viewZ--
		}
	case tcell.KeyDown:
		if !a.key(editor.KeyLower) {
			a.viewZ++
		}
	case tcell.KeyLeft:
		a.viewX--
	case tcell.KeyRight:
		a.viewX++
	case tcell.KeyRune:
		a.handleRune(ev.Rune())
	}
	return false
}

func (a *app) handleRune(r rune) {
	switch r {
	case 'q', 'w', 'e', 'r':
		// Переключение инструмента не относится к редактору тайлов
		a.key(editor.KeyToolSwitch)
		a.status = fmt.Sprintf("инструмент %c", r)
	case 'h':
		a.viewX--
	case 'l':
		a.viewX++
	case 'k':
		a.viewZ--
	case 'j':
		a.viewZ++
	case '[', ']':
		step := 1
		if r == '[' {
			step = -1
		}
		a.selectTemplate(a.catalog.Next(a.currentTemplate(), step))
	case 'o':
		a.cycleOrientation()
	case 'u':
		a.rebuildAll()
	case 'C':
		a.clearAll()
	case '+', '=':
		a.setTileSize(a.doc.TileSize() * 2)
	case '-':
		a.setTileSize(a.doc.TileSize() / 2)
	case 'g':
		a.generate()
	default:
		if r >= '0' && r <= '9' {
			a.pick(int(r - '0'))
		}
	}
}

func (a *app) currentTemplate() tilemap.TemplateRef {
	if s := a.ctrl.Session(); s != nil {
		return s.SelectedTemplate()
	}
	return a.doc.DefaultTemplate()
}

func (a *app) selectTemplate(t tilemap.TemplateRef) {
	if s := a.ctrl.Session(); s != nil {
		s.SelectTemplate(t)
	}
	if err := a.doc.SetDefaultTemplate(t); err != nil {
		a.status = err.Error()
		return
	}
	a.status = fmt.Sprintf("шаблон %s", t)
}

// pick выбор пункта пикера: 0: текущий шаблон, 1..n: каталог
func (a *app) pick(index int) {
	s := a.ctrl.Session()
	if s == nil {
		if t, ok := a.catalog.Pick(index); ok {
			a.selectTemplate(t)
		}
		return
	}
	if err := s.Pick(a.catalog, index); err != nil {
		a.status = err.Error()
		return
	}
	a.status = fmt.Sprintf("шаблон %s", s.SelectedTemplate())
}

func (a *app) cycleOrientation() {
	for i, o := range tilemap.Orientations {
		if o == a.orientation {
			a.orientation = tilemap.Orientations[(i+1)%len(tilemap.Orientations)]
			break
		}
	}
	if s := a.ctrl.Session(); s != nil {
		_ = s.SetOrientation(a.orientation)
	}
	a.status = fmt.Sprintf("ориентация %s", a.orientation.Glyph())
}

func (a *app) undo(step func() (bool, error), name string) {
	ok, err := step()
	switch {
	case err != nil:
		a.status = fmt.Sprintf("%s: %v", name, err)
	case !ok:
		a.status = name + ": журнал пуст"
	default:
		a.status = name
		a.refreshOutlines()
	}
}

func (a *app) rebuildAll() {
	res, err := a.doc.RebuildAll()
	if err != nil {
		a.status = err.Error()
		return
	}
	a.refreshOutlines()
	a.status = fmt.Sprintf("пересоздано %d экземпляров", res.Placed)
}

func (a *app) clearAll() {
	n, err := a.doc.ClearAll()
	if err != nil {
		a.status = err.Error()
		return
	}
	a.status = fmt.Sprintf("удалено %d тайлов", n)
}

func (a *app) setTileSize(size float64) {
	if err := a.doc.SetTileSize(size); err != nil {
		a.status = err.Error()
		return
	}
	a.status = fmt.Sprintf("размер тайла %g", size)
}

func (a *app) generate() {
	surface := a.currentTemplate()
	if surface.IsNone() {
		a.status = "шаблон не выбран"
		return
	}
	terrain := generator.New(generator.Params{Seed: a.cfg.Editor.Seed, Surface: surface, Orientation: a.orientation})
	area := tilemap.Region{
		Min:  vec.Vec3{X: a.viewX, Z: a.viewZ},
		Size: vec.Vec3{X: a.width, Y: 1, Z: a.height - statusRows},
	}
	if err := terrain.Generate(a.doc, area); err != nil {
		a.status = err.Error()
		return
	}
	a.refreshOutlines()
	a.status = fmt.Sprintf("рельеф %s", area)
}

func (a *app) save(ctx context.Context) {
	if err := a.repo.Save(ctx, a.doc.Record()); err != nil {
		a.status = fmt.Sprintf("ошибка сохранения: %v", err)
		a.log.Error("Сохранение документа %s: %v", a.doc.ID(), err)
		return
	}
	a.doc.ClearDirty()
	a.status = fmt.Sprintf("сохранено %s", a.doc.ID())
	a.log.Info("Документ %s сохранён (%d тайлов)", a.doc.ID(), a.doc.Count())
}

func (a *app) saveIfDirty(ctx context.Context) error {
	if !a.doc.Dirty() {
		return nil
	}
	if err := a.repo.Save(ctx, a.doc.Record()); err != nil {
		return fmt.Errorf("save %s: %w", a.doc.ID(), err)
	}
	a.doc.ClearDirty()
	logging.Info("Документ %s сохранён при выходе", a.doc.ID())
	return nil
}
