package source

import (
	"image"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// maxCanvases guards against leaks; a render only ever holds a few canvases.
const maxCanvases = 16

var transparent = gocv.NewScalar(0, 0, 0, 0)

// CanvasPool recycles BGRA canvases of one fixed size. Every canvas handed out
// is fully transparent regardless of what it last held.
type CanvasPool struct {
	size image.Point

	new   chan chan gocv.Mat
	free  chan gocv.Mat
	close chan chan bool

	allocated int
	available []gocv.Mat
}

func NewCanvasPool(size image.Point) *CanvasPool {
	p := &CanvasPool{
		size:  size,
		new:   make(chan chan gocv.Mat),
		free:  make(chan gocv.Mat),
		close: make(chan chan bool),
	}
	go func() {
		for {
			select {
			case c := <-p.close:
				for _, m := range p.available {
					m.Close()
					p.allocated -= 1
				}
				p.available = nil
				c <- true
				return
			case m := <-p.free:
				p.available = append(p.available, m)
			case r := <-p.new:
				var m gocv.Mat
				if len(p.available) > 0 {
					m, p.available = p.available[0], p.available[1:]
					m.SetTo(transparent)
				} else {
					m = NewCanvas(p.size)
					p.allocated += 1
					if p.allocated > maxCanvases {
						log.Fatalf("Too many CanvasPool allocations. Perhaps a canvas isn't being released?")
					}
				}
				r <- m
			}
		}
	}()
	return p
}

// NewCanvas allocates a fresh, fully transparent canvas outside any pool.
func NewCanvas(size image.Point) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(transparent, size.Y, size.X, gocv.MatTypeCV8UC4)
}

func (p *CanvasPool) Size() image.Point {
	return p.size
}

func (p *CanvasPool) Get() gocv.Mat {
	r := make(chan gocv.Mat)
	p.new <- r
	return <-r
}

func (p *CanvasPool) Put(m gocv.Mat) {
	p.free <- m
}

// Close frees every pooled canvas. Canvases still checked out belong to the
// caller and must be closed by it.
func (p *CanvasPool) Close() {
	c := make(chan bool)
	p.close <- c
	<-c
}
