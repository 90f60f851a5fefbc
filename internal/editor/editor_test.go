package editor

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilemap-editor/internal/tilemap"
	"github.com/annel0/tilemap-editor/internal/vec"
)

type regionCall struct {
	Label       string
	Region      tilemap.Region
	Template    tilemap.TemplateRef
	Orientation tilemap.Orientation
}

type fakeTarget struct {
	tileSize    float64
	defaultTpl  tilemap.TemplateRef
	handles     []tilemap.InstanceHandle
	calls       []regionCall
	nextHandle  tilemap.InstanceHandle
	failRegion  error
	defaultSets int
}

func (f *fakeTarget) TileSize() float64                    { return f.tileSize }
func (f *fakeTarget) DefaultTemplate() tilemap.TemplateRef { return f.defaultTpl }
func (f *fakeTarget) Handles() []tilemap.InstanceHandle    { return f.handles }
func (f *fakeTarget) SetDefaultTemplate(t tilemap.TemplateRef) error {
	f.defaultTpl = t
	f.defaultSets++
	return nil
}

func (f *fakeTarget) SetRegion(label string, r tilemap.Region, t tilemap.TemplateRef, o tilemap.Orientation) (tilemap.RegionResult, error) {
	if f.failRegion != nil {
		return tilemap.RegionResult{}, f.failRegion
	}
	f.calls = append(f.calls, regionCall{label, r, t, o})
	res := tilemap.RegionResult{}
	if !t.IsNone() {
		f.nextHandle++
		res.Placed = 1
		res.Created = []tilemap.InstanceHandle{f.nextHandle}
		f.handles = append(f.handles, f.nextHandle)
	}
	return res, nil
}

type highlightCall struct {
	Handles []tilemap.InstanceHandle
	On      bool
}

type fakeHost struct {
	camera     Camera
	dirty      int
	highlights []highlightCall
}

func (h *fakeHost) Camera() (Camera, bool) { return h.camera, h.camera != nil }
func (h *fakeHost) MarkDirty()             { h.dirty++ }
func (h *fakeHost) SetHighlighted(handles []tilemap.InstanceHandle, on bool) {
	h.highlights = append(h.highlights, highlightCall{handles, on})
}

// missCamera смотрит вверх из точки над плоскостью и никогда в неё не попадает
type missCamera struct{}

func (missCamera) ScreenRay(p vec.Vec2Float) Ray {
	return Ray{Origin: mgl64.Vec3{p.X, 1, p.Y}, Dir: mgl64.Vec3{0, 1, 0}}
}

func newEditor(t *testing.T) (*Controller, *fakeTarget, *fakeHost) {
	t.Helper()
	target := &fakeTarget{tileSize: 1, defaultTpl: "grass"}
	host := &fakeHost{camera: TopDownCamera{Scale: 1, Height: 100}}
	c := NewController(target, host)
	require.True(t, c.HandleEvent(Event{Kind: EventKeyDown, Key: KeyToggleEdit}))
	require.True(t, c.Editing())
	return c, target, host
}

func move(x, z float64) Event {
	return Event{Kind: EventPointerMove, Pointer: vec.Vec2Float{X: x, Y: z}}
}

func down(x, z float64, b Button) Event {
	return Event{Kind: EventPointerDown, Pointer: vec.Vec2Float{X: x, Y: z}, Button: b}
}

func up(x, z float64, b Button) Event {
	return Event{Kind: EventPointerUp, Pointer: vec.Vec2Float{X: x, Y: z}, Button: b}
}

func key(k Key, x, z float64) Event {
	return Event{Kind: EventKeyDown, Key: k, Pointer: vec.Vec2Float{X: x, Y: z}}
}

func TestController_CommitBoundaries(t *testing.T) {
	c, target, _ := newEditor(t)
	s := c.Session()
	require.NoError(t, s.SetOrientation(tilemap.OrientationSouth))

	assert.True(t, c.HandleEvent(move(2, 3)))
	assert.True(t, c.HandleEvent(down(2, 3, ButtonPrimary)))
	assert.Equal(t, ModeBoxSelect, s.Mode())
	origin, dragging := s.DragOrigin()
	require.True(t, dragging)
	assert.Equal(t, vec.Vec2{X: 2, Y: 3}, origin)

	assert.True(t, c.HandleEvent(move(5, 1)))
	assert.True(t, c.HandleEvent(key(KeyRaise, 5, 1)))
	assert.Equal(t, 1, s.CurrentY())
	assert.Equal(t, 0, s.PlaneY(), "при протягивании плоскость не двигается")
	assert.Equal(t, tilemap.Region{Min: vec.Vec3{X: 2, Y: 0, Z: 1}, Size: vec.Vec3{X: 4, Y: 2, Z: 3}}, s.Selection())

	assert.True(t, c.HandleEvent(up(5, 1, ButtonPrimary)))
	require.Len(t, target.calls, 1)
	call := target.calls[0]
	assert.Equal(t, tilemap.Region{Min: vec.Vec3{X: 2, Y: 0, Z: 1}, Size: vec.Vec3{X: 4, Y: 2, Z: 3}}, call.Region)
	assert.Equal(t, tilemap.TemplateRef("grass"), call.Template)
	assert.Equal(t, tilemap.OrientationSouth, call.Orientation)
	assert.Equal(t, LabelPaint, call.Label)

	assert.Equal(t, ModeHover, s.Mode())
	assert.Equal(t, 1, s.PlaneY(), "после коммита плоскость следует за высотой")
	_, dragging = s.DragOrigin()
	assert.False(t, dragging)
}

func TestController_DeletionDrag(t *testing.T) {
	c, target, host := newEditor(t)
	c.HandleEvent(move(2, 3))
	c.HandleEvent(down(2, 3, ButtonSecondary))
	assert.True(t, c.Session().Deleting())
	c.HandleEvent(move(5, 1))
	c.HandleEvent(key(KeyRaise, 5, 1))
	dirtyBefore := host.dirty
	c.HandleEvent(up(5, 1, ButtonSecondary))

	require.Len(t, target.calls, 1)
	assert.Equal(t, tilemap.NoTemplate, target.calls[0].Template)
	assert.Equal(t, LabelErase, target.calls[0].Label)
	assert.Equal(t, tilemap.Region{Min: vec.Vec3{X: 2, Y: 0, Z: 1}, Size: vec.Vec3{X: 4, Y: 2, Z: 3}}, target.calls[0].Region)
	assert.Greater(t, host.dirty, dirtyBefore)
	assert.False(t, c.Session().Deleting())
}

func TestController_MismatchedReleaseDiscards(t *testing.T) {
	c, target, _ := newEditor(t)
	c.HandleEvent(down(0, 0, ButtonSecondary))
	c.HandleEvent(key(KeyRaise, 0, 0))
	c.HandleEvent(up(0, 0, ButtonPrimary))

	assert.Empty(t, target.calls, "отпускание другой кнопки не коммитит")
	assert.Equal(t, ModeHover, c.Session().Mode())
	assert.Equal(t, 1, c.Session().PlaneY(), "высота всё равно переносится на плоскость")
}

func TestController_NewInstancesUnhighlighted(t *testing.T) {
	c, target, host := newEditor(t)
	c.HandleEvent(down(1, 1, ButtonPrimary))
	c.HandleEvent(up(1, 1, ButtonPrimary))

	require.NotEmpty(t, host.highlights)
	last := host.highlights[len(host.highlights)-1]
	assert.False(t, last.On)
	assert.Equal(t, target.handles, last.Handles)
}

func TestController_ToggleHighlights(t *testing.T) {
	target := &fakeTarget{tileSize: 1, handles: []tilemap.InstanceHandle{7, 8}}
	host := &fakeHost{camera: TopDownCamera{Scale: 1, Height: 10}}
	c := NewController(target, host)

	assert.False(t, c.HandleEvent(move(1, 1)), "вне режима редактирования события проходят")
	c.HandleEvent(Event{Kind: EventKeyDown, Key: KeyToggleEdit})
	c.HandleEvent(Event{Kind: EventKeyDown, Key: KeyToggleEdit})

	require.Len(t, host.highlights, 2)
	assert.Equal(t, highlightCall{[]tilemap.InstanceHandle{7, 8}, false}, host.highlights[0])
	assert.Equal(t, highlightCall{[]tilemap.InstanceHandle{7, 8}, true}, host.highlights[1])
	assert.Nil(t, c.Session())
	assert.Equal(t, 2, host.dirty)
}

func TestController_InputFiltering(t *testing.T) {
	c, _, host := newEditor(t)
	s := c.Session()

	assert.False(t, c.HandleEvent(key(KeyToolSwitch, 0, 0)))
	assert.False(t, c.HandleEvent(Event{Kind: EventPointerDown, Button: ButtonMiddle}))
	assert.False(t, c.HandleEvent(Event{Kind: EventPointerDown, PanModifier: true}))
	assert.False(t, c.HandleEvent(Event{Kind: EventScroll}))
	assert.True(t, c.HandleEvent(Event{Kind: EventLayout}), "проход раскладки поглощается без действия")
	assert.Equal(t, ModeHover, s.Mode())

	host.camera = nil
	assert.False(t, c.HandleEvent(down(0, 0, ButtonPrimary)))
	assert.False(t, c.HandleEvent(Event{Kind: EventLayout}))
	assert.Equal(t, ModeHover, s.Mode())
}

func TestController_BoundaryMissSkipsEvent(t *testing.T) {
	c, target, host := newEditor(t)
	c.HandleEvent(move(4, 4))
	host.camera = missCamera{}

	assert.False(t, c.HandleEvent(down(9, 9, ButtonPrimary)))
	assert.False(t, c.HandleEvent(key(KeyRaise, 9, 9)))
	s := c.Session()
	assert.Equal(t, ModeHover, s.Mode())
	assert.Equal(t, vec.Vec2{X: 4, Y: 4}, s.Cursor(), "промах не меняет состояние")
	assert.Equal(t, 0, s.CurrentY())
	assert.Equal(t, 2, c.Misses())
	assert.Empty(t, target.calls)
}

func TestSession_HeightKeys(t *testing.T) {
	c, _, host := newEditor(t)
	s := c.Session()

	c.HandleEvent(key(KeyLower, 0, 0))
	assert.Equal(t, 0, s.CurrentY(), "высота не опускается ниже нуля")
	assert.Equal(t, 0, s.PlaneY())

	dirty := host.dirty
	c.HandleEvent(key(KeyRaise, 0, 0))
	c.HandleEvent(key(KeyRaise, 0, 0))
	assert.Equal(t, 2, s.PlaneY())
	assert.Equal(t, 2, s.CurrentY())
	assert.Equal(t, dirty+2, host.dirty)

	c.HandleEvent(key(KeyLower, 0, 0))
	assert.Equal(t, 1, s.PlaneY())
	assert.False(t, c.HandleEvent(key(KeyOther, 0, 0)))
}

func TestController_PlaneHeightScalesWithTileSize(t *testing.T) {
	target := &fakeTarget{tileSize: 2, defaultTpl: "grass"}
	cam := PerspectiveCamera{
		Eye:    mgl64.Vec3{0, 20, 20},
		Center: mgl64.Vec3{0, 0, 0},
		FovY:   60,
		Width:  100,
		Height: 100,
	}
	host := &fakeHost{camera: cam}
	c := NewController(target, host)
	c.SetEditing(true)

	c.HandleEvent(move(50, 50))
	assert.Equal(t, vec.Vec2{X: 0, Y: 0}, c.Session().Cursor(), "центр экрана попадает в начало координат")

	c.HandleEvent(key(KeyRaise, 50, 50))
	c.HandleEvent(move(50, 50))
	// плоскость y=2: луч из (0,20,20) к (0,0,0) пересекает её в z=2, ячейка z=1
	assert.Equal(t, vec.Vec2{X: 0, Y: 1}, c.Session().Cursor())
}

func TestSession_CommitErrorIsKept(t *testing.T) {
	c, target, _ := newEditor(t)
	target.failRegion = errors.New("boom")
	c.HandleEvent(down(0, 0, ButtonPrimary))
	c.HandleEvent(up(0, 0, ButtonPrimary))
	assert.Error(t, c.Session().Err())
	assert.Equal(t, ModeHover, c.Session().Mode())
}

type stubPicker []tilemap.TemplateRef

func (p stubPicker) Pick(index int) (tilemap.TemplateRef, bool) {
	if index <= 0 || index > len(p) {
		return tilemap.NoTemplate, false
	}
	return p[index-1], true
}

func TestSession_PickAndOrientation(t *testing.T) {
	c, target, _ := newEditor(t)
	s := c.Session()
	assert.Equal(t, tilemap.TemplateRef("grass"), s.SelectedTemplate())

	require.NoError(t, s.Pick(stubPicker{"stone", "sand"}, 0))
	assert.Equal(t, tilemap.TemplateRef("grass"), s.SelectedTemplate(), "индекс 0: без изменений")
	assert.Zero(t, target.defaultSets)

	require.NoError(t, s.Pick(stubPicker{"stone", "sand"}, 2))
	assert.Equal(t, tilemap.TemplateRef("sand"), s.SelectedTemplate())
	assert.Equal(t, tilemap.TemplateRef("sand"), target.DefaultTemplate())

	assert.ErrorIs(t, s.SetOrientation(7), tilemap.ErrInvalidOrientation)
	require.NoError(t, s.SetOrientation(tilemap.OrientationRandom))
	assert.Equal(t, tilemap.OrientationRandom, s.SelectedOrientation())
}

func TestIntersectHorizontal(t *testing.T) {
	hit, ok := IntersectHorizontal(Ray{Origin: mgl64.Vec3{1, 10, 1}, Dir: mgl64.Vec3{0, -1, 0}}, 3)
	require.True(t, ok)
	assert.InDelta(t, 3.0, hit.Y(), 1e-9)

	_, ok = IntersectHorizontal(Ray{Origin: mgl64.Vec3{0, 1, 0}, Dir: mgl64.Vec3{1, 0, 0}}, 0)
	assert.False(t, ok, "параллельный луч")
	_, ok = IntersectHorizontal(Ray{Origin: mgl64.Vec3{0, 1, 0}, Dir: mgl64.Vec3{0, -1, 0}}, 5)
	assert.False(t, ok, "плоскость позади луча")
}

func TestCellAt_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, vec.Vec2{X: 1, Y: -1}, cellAt(mgl64.Vec3{0.5, 0, -0.5}, 1))
	assert.Equal(t, vec.Vec2{X: 3, Y: -3}, cellAt(mgl64.Vec3{2.5, 0, -2.5}, 1), "не к чётному")
	assert.Equal(t, vec.Vec2{X: 2, Y: 1}, cellAt(mgl64.Vec3{3, 7, 1}, 2), "высота точки не влияет")
	assert.Equal(t, vec.Vec2{X: 0, Y: 0}, cellAt(mgl64.Vec3{0.49, 0, -0.49}, 1))
}
