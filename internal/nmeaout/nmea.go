// Package nmeaout writes headings as NMEA 0183 HDM sentences, the format
// marine autopilots and chart plotters read from a magnetic compass.
package nmeaout

import (
	"fmt"
	"io"
	"math"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

// Sentence returns "$<talker>HDM,<deg>,M*<checksum>\r\n" with the heading at
// one decimal in [0, 360).
func Sentence(talker string, angle float64) string {
	body := fmt.Sprintf("%sHDM,%.1f,M", talker, tenths(angle))
	return "$" + body + "*" + nmea.Checksum(body) + "\r\n"
}

// tenths rounds to one decimal; 359.95 and above fold to 0.
func tenths(angle float64) float64 {
	v := math.Round(angle*10) / 10
	if v >= 360 {
		v -= 360
	}
	return v
}

// OpenSerial opens port at baud, 8N1.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("nmea: open %s: %w", port, err)
	}
	return rwc, nil
}

// Writer implements broadcast.Publisher by writing one sentence per reading.
type Writer struct {
	talker string
	log    *zap.SugaredLogger

	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer with the given two-letter talker ID ("HC" for a
// magnetic compass).
func NewWriter(w io.Writer, talker string, logger *zap.SugaredLogger) *Writer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Writer{w: w, talker: talker, log: logger}
}

// Publish writes the sentence for r. Write errors are logged.
func (w *Writer) Publish(r compass.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, Sentence(w.talker, r.Angle)); err != nil {
		w.log.Warnf("write error: %v", err)
	}
}
