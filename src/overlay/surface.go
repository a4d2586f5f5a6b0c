package overlay

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"screen-assistant/src/geometry"
	"screen-assistant/src/shape"
)

// Surface renders engine snapshots on a transparent, frameless, always-on-top
// window covering the virtual desktop. It never calls back into anything
// slower than the engine mutex, so pending vision work cannot stall a frame.
type Surface struct {
	engine *Engine
	win    fyne.Window
	layer  *editLayer
	stop   chan struct{}
}

// NewSurface creates the overlay window on the given fyne app. The window is
// input-transparent until the engine enters edit mode.
func NewSurface(a fyne.App, engine *Engine, bounds geometry.Size) *Surface {
	win := a.NewWindow("Screen Assistant Overlay")
	win.SetPadded(false)
	win.SetFullScreen(true)

	s := &Surface{
		engine: engine,
		win:    win,
		stop:   make(chan struct{}),
	}
	s.layer = newEditLayer(engine)
	win.SetContent(container.NewStack(s.layer))
	win.Resize(fyne.NewSize(float32(bounds.Width), float32(bounds.Height)))

	applyClickThrough(win)
	return s
}

// Run shows the window and drives the animation tick until Stop.
func (s *Surface) Run() {
	s.win.Show()

	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				rendered := s.engine.Tick()
				fyne.Do(func() {
					s.layer.update(rendered)
				})
			}
		}
	}()
}

// SetEditMode toggles pointer pass-through along with the engine's edit
// state, so shapes become draggable only while editing.
func (s *Surface) SetEditMode(enabled bool) {
	s.engine.SetEditMode(enabled)
	fyne.Do(func() {
		setClickThrough(s.win, !enabled)
	})
}

// Stop halts the tick and hides the window.
func (s *Surface) Stop() {
	close(s.stop)
	fyne.Do(func() {
		s.win.Hide()
	})
}

// editLayer draws the shapes and forwards pointer gestures to the engine
// while edit mode is on.
type editLayer struct {
	widget.BaseWidget
	engine  *Engine
	content *fyne.Container
}

func newEditLayer(engine *Engine) *editLayer {
	l := &editLayer{
		engine:  engine,
		content: container.NewWithoutLayout(),
	}
	l.ExtendBaseWidget(l)
	return l
}

func (l *editLayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(l.content)
}

// update rebuilds the canvas objects for this frame. Must run on the fyne
// main loop.
func (l *editLayer) update(rendered []RenderedShape) {
	l.content.Objects = l.content.Objects[:0]
	for _, r := range rendered {
		for _, obj := range shapeObjects(r) {
			l.content.Objects = append(l.content.Objects, obj)
		}
	}
	l.content.Refresh()
}

func (l *editLayer) Tapped(ev *fyne.PointEvent) {
	l.engine.Press(int(ev.Position.X), int(ev.Position.Y))
}

func (l *editLayer) Dragged(ev *fyne.DragEvent) {
	l.engine.Press(int(ev.Position.X-ev.Dragged.DX), int(ev.Position.Y-ev.Dragged.DY))
	l.engine.Drag(int(ev.Position.X), int(ev.Position.Y))
}

func (l *editLayer) DragEnd() {
	l.engine.Release()
}

func (l *editLayer) Scrolled(ev *fyne.ScrollEvent) {
	l.engine.Wheel(int(ev.Scrolled.DY))
}

// shapeObjects builds the canvas primitives for one rendered shape, with the
// pulse scale applied about the shape's center.
func shapeObjects(r RenderedShape) []fyne.CanvasObject {
	rect := pulsedRect(r)
	col := shapeColor(r.Shape.Color, r.Opacity)

	var objs []fyne.CanvasObject
	switch r.Shape.Kind {
	case shape.KindCircle:
		c := canvas.NewCircle(color.Transparent)
		c.StrokeColor = col
		c.StrokeWidth = 3
		c.Move(fyne.NewPos(float32(rect.X), float32(rect.Y)))
		c.Resize(fyne.NewSize(float32(rect.Width), float32(rect.Height)))
		objs = append(objs, c)
	case shape.KindArrow:
		objs = append(objs, arrowObjects(rect, col)...)
	default:
		box := canvas.NewRectangle(color.Transparent)
		box.StrokeColor = col
		box.StrokeWidth = 3
		box.Move(fyne.NewPos(float32(rect.X), float32(rect.Y)))
		box.Resize(fyne.NewSize(float32(rect.Width), float32(rect.Height)))
		objs = append(objs, box)
	}

	if r.Shape.Label != "" {
		label := canvas.NewText(r.Shape.Label, col)
		label.TextStyle = fyne.TextStyle{Bold: true}
		label.Move(fyne.NewPos(float32(rect.X), float32(rect.Y-20)))
		objs = append(objs, label)
	}
	return objs
}

// arrowObjects draws a line from the rect's top-left toward its center with a
// small V head at the target end.
func arrowObjects(rect geometry.Rect, col color.Color) []fyne.CanvasObject {
	cx, cy := rect.Center()
	shaft := canvas.NewLine(col)
	shaft.StrokeWidth = 3
	shaft.Position1 = fyne.NewPos(float32(rect.X), float32(rect.Y))
	shaft.Position2 = fyne.NewPos(float32(cx), float32(cy))

	headA := canvas.NewLine(col)
	headA.StrokeWidth = 3
	headA.Position1 = fyne.NewPos(float32(cx), float32(cy))
	headA.Position2 = fyne.NewPos(float32(cx-10), float32(cy-4))

	headB := canvas.NewLine(col)
	headB.StrokeWidth = 3
	headB.Position1 = fyne.NewPos(float32(cx), float32(cy))
	headB.Position2 = fyne.NewPos(float32(cx-4), float32(cy-10))

	return []fyne.CanvasObject{shaft, headA, headB}
}

func pulsedRect(r RenderedShape) geometry.Rect {
	rect := r.Shape.Rect
	if r.Scale == 1.0 {
		return rect
	}
	cx, cy := rect.Center()
	w := int(float64(rect.Width) * r.Scale)
	h := int(float64(rect.Height) * r.Scale)
	return geometry.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

var namedColors = map[string]color.RGBA{
	"green":  {R: 0x2e, G: 0xcc, B: 0x40, A: 0xff},
	"red":    {R: 0xff, G: 0x41, B: 0x36, A: 0xff},
	"blue":   {R: 0x00, G: 0x74, B: 0xd9, A: 0xff},
	"yellow": {R: 0xff, G: 0xdc, B: 0x00, A: 0xff},
	"orange": {R: 0xff, G: 0x85, B: 0x1b, A: 0xff},
	"purple": {R: 0xb1, G: 0x0d, B: 0xc9, A: 0xff},
	"white":  {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

func shapeColor(name string, opacity float64) color.Color {
	c, ok := namedColors[name]
	if !ok {
		c = namedColors["green"]
	}
	c.A = uint8(opacity * 255)
	return c
}
