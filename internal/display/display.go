// Package display renders the current heading on an SSD1306 128x64 OLED.
package display

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

const (
	width  = 128
	height = 64

	// compass rose geometry, right side of the panel
	roseX      = 104
	roseY      = 32
	roseRadius = 20
)

// Device is the subset of *ssd1306.Dev the display loop drives.
type Device interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OpenSSD1306 initializes periph and opens the OLED on the named I2C bus
// ("" selects the first bus). The returned closer releases the bus.
func OpenSSD1306(busName string) (Device, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return dev, bus, nil
}

// Display keeps the latest reading and redraws it on a fixed period.
type Display struct {
	dev      Device
	interval time.Duration
	log      *zap.SugaredLogger

	mu   sync.RWMutex
	last compass.Reading
	have bool
}

// New returns a Display that refreshes dev every interval.
func New(dev Device, interval time.Duration, logger *zap.SugaredLogger) *Display {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Display{dev: dev, interval: interval, log: logger}
}

// Publish records r for the next refresh.
func (d *Display) Publish(r compass.Reading) {
	d.mu.Lock()
	d.last = r
	d.have = true
	d.mu.Unlock()
}

// Run shows the splash screen and then redraws until ctx is done, when the
// panel is switched off.
func (d *Display) Run(ctx context.Context) error {
	if err := d.dev.Draw(d.dev.Bounds(), Splash(), image.Point{}); err != nil {
		d.log.Warnf("error showing splash: %v", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := d.dev.Halt(); err != nil {
				d.log.Warnf("halt error: %v", err)
			}
			return ctx.Err()
		case <-ticker.C:
			d.mu.RLock()
			r, have := d.last, d.have
			d.mu.RUnlock()

			if err := d.dev.Draw(d.dev.Bounds(), Render(r.Heading, have), image.Point{}); err != nil {
				d.log.Warnf("error updating display: %v", err)
			}
		}
	}
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// Splash is the start-up screen.
func Splash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Compass"))
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Starting..."))
	return img
}

// Render draws the heading text on the left and a compass rose whose
// north needle is turned by h.Rotation() on the right.
func Render(h compass.Heading, have bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !have {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Heading"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte("Heading"))
	drawer.Dot = fixed.P(0, 32)
	drawer.DrawBytes([]byte(fmt.Sprintf("%6.2f deg", h.Angle)))
	drawer.Dot = fixed.P(0, 51)
	drawer.DrawBytes([]byte(string(h.Direction)))

	drawRose(img, h.Rotation())
	return img
}

func drawRose(img *image1bit.VerticalLSB, rotationDeg float64) {
	for a := 0; a < 360; a += 3 {
		rad := float64(a) * math.Pi / 180
		img.SetBit(roseX+int(math.Round(roseRadius*math.Sin(rad))),
			roseY-int(math.Round(roseRadius*math.Cos(rad))), image1bit.On)
	}

	rad := rotationDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	for i := 0; i <= roseRadius-4; i++ {
		img.SetBit(roseX+int(math.Round(float64(i)*sin)),
			roseY-int(math.Round(float64(i)*cos)), image1bit.On)
	}
}
