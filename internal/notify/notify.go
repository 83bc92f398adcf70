// Package notify keeps a persistent heading notification visible while the
// compass runs in the background.
package notify

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

// NotAvailable is shown until the first heading arrives.
const NotAvailable = "not available"

// Notifier is where notification text ends up.
type Notifier interface {
	Show(text string) error
	Cancel() error
}

// Text renders the notification body for a direction and angle.
func Text(direction string, angle float64) string {
	return fmt.Sprintf("You're currently facing %s at an angle of %s°", direction, compass.FormatAngle(angle))
}

// Service mirrors the lifecycle of a foreground service: it shows a
// placeholder on Start, then on every reading either updates the
// notification (background) or removes it (foreground).
type Service struct {
	notifier Notifier
	log      *zap.SugaredLogger

	mu         sync.Mutex
	background bool
	shown      bool

	stopOnce sync.Once
	done     chan struct{}
}

// NewService creates a Service in the given mode.
func NewService(n Notifier, background bool, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		notifier:   n,
		log:        logger,
		background: background,
		done:       make(chan struct{}),
	}
}

// Start shows the placeholder notification.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notifier.Show(Text(NotAvailable, 0)); err != nil {
		return fmt.Errorf("notify: start: %w", err)
	}
	s.shown = true
	return nil
}

// SetBackground switches the mode. It takes effect with the next reading.
func (s *Service) SetBackground(background bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.background != background {
		s.log.Infof("background mode %t", background)
	}
	s.background = background
}

// Background reports the current mode.
func (s *Service) Background() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Publish updates or removes the notification for r.
func (s *Service) Publish(r compass.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	if s.background {
		if err := s.notifier.Show(Text(string(r.Direction), r.Angle)); err != nil {
			s.log.Warnf("show notification: %v", err)
			return
		}
		s.shown = true
		return
	}
	if s.shown {
		if err := s.notifier.Cancel(); err != nil {
			s.log.Warnf("cancel notification: %v", err)
			return
		}
		s.shown = false
	}
}

// Stop is the notification's stop action: it removes the notification and
// closes Done. Further readings are ignored.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.notifier.Cancel()
		s.shown = false
		close(s.done)
	})
	return err
}

// Done is closed once Stop has been called.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// LogNotifier writes the notification to a logger.
type LogNotifier struct {
	Logger *zap.SugaredLogger
}

func (n LogNotifier) Show(text string) error {
	n.Logger.Infof("notification: %s", text)
	return nil
}

func (n LogNotifier) Cancel() error {
	n.Logger.Info("notification cancelled")
	return nil
}

// Multi forwards to every notifier and combines their errors.
type Multi []Notifier

func (m Multi) Show(text string) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Show(text))
	}
	return err
}

func (m Multi) Cancel() error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Cancel())
	}
	return err
}
