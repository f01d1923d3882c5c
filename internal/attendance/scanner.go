package attendance

import (
	"context"
	"errors"
	"image"
	"sync"

	"smarttrack/internal/model"
	"smarttrack/internal/qrtoken"
)

// ScanState is the scanner's position in one scan attempt.
type ScanState string

const (
	ScanIdle     ScanState = "idle"
	ScanDecoding ScanState = "decoding"
	ScanChecking ScanState = "checking"
	ScanAccepted ScanState = "accepted"
	ScanRejected ScanState = "rejected"
	ScanClosed   ScanState = "closed"
)

var (
	// ErrScannerBusy is returned for frames that arrive mid-attempt.
	ErrScannerBusy = errors.New("scanner busy")
	// ErrScannerClosed is returned after an accepted scan or Stop, until Arm.
	ErrScannerClosed = errors.New("scanner closed")
)

// Scanner drives one student's scan attempts through the verifier.
//
// Idle -> Decoding -> Checking -> Accepted | Rejected. Rejected re-arms to
// Idle straight away; Accepted ends the scanning session until Arm. Frames
// that arrive outside Idle are dropped, so a burst of frames of the same code
// cannot produce two acceptances.
type Scanner struct {
	verifier  *Verifier
	studentID string

	mu       sync.Mutex
	state    ScanState
	observer func(from, to ScanState)
}

// NewScanner returns an armed scanner.
func NewScanner(v *Verifier, studentID string) *Scanner {
	return &Scanner{verifier: v, studentID: studentID, state: ScanIdle}
}

// OnTransition registers a hook called on every state change.
func (s *Scanner) OnTransition(fn func(from, to ScanState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// State is the current state.
func (s *Scanner) State() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm makes the scanner ready again after acceptance or Stop.
func (s *Scanner) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ScanAccepted || s.state == ScanClosed {
		s.setLocked(ScanIdle)
	}
}

// Stop ends scanning. Records already accepted are unaffected.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(ScanClosed)
}

// HandleFrame decodes a captured frame and verifies the token it holds.
// Frames without a readable token return qrtoken.ErrNoToken and leave the
// scanner armed.
func (s *Scanner) HandleFrame(ctx context.Context, frame image.Image, networkFingerprint string) (model.Record, error) {
	if err := s.begin(); err != nil {
		return model.Record{}, err
	}
	payload, err := qrtoken.Decode(frame)
	if err != nil {
		s.set(ScanIdle)
		return model.Record{}, err
	}
	return s.check(ctx, payload, networkFingerprint)
}

// HandlePayload verifies a token already decoded on the device.
func (s *Scanner) HandlePayload(ctx context.Context, payload, networkFingerprint string) (model.Record, error) {
	if err := s.begin(); err != nil {
		return model.Record{}, err
	}
	return s.check(ctx, payload, networkFingerprint)
}

func (s *Scanner) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case ScanIdle:
		s.setLocked(ScanDecoding)
		return nil
	case ScanAccepted, ScanClosed:
		return ErrScannerClosed
	}
	return ErrScannerBusy
}

func (s *Scanner) check(ctx context.Context, payload, networkFingerprint string) (model.Record, error) {
	s.set(ScanChecking)
	rec, err := s.verifier.Verify(ctx, s.studentID, payload, networkFingerprint)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Stop during the check wins; the outcome is still reported.
	if s.state == ScanClosed {
		if err != nil {
			return model.Record{}, err
		}
		return rec, nil
	}
	if err != nil {
		s.setLocked(ScanRejected)
		s.setLocked(ScanIdle)
		return model.Record{}, err
	}
	s.setLocked(ScanAccepted)
	return rec, nil
}

func (s *Scanner) set(to ScanState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(to)
}

func (s *Scanner) setLocked(to ScanState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.observer != nil {
		s.observer(from, to)
	}
}

// Scanners keeps one Scanner per student for server-side frame decoding.
type Scanners struct {
	verifier *Verifier
	mu       sync.Mutex
	byID     map[string]*Scanner
}

// NewScanners creates an empty registry.
func NewScanners(v *Verifier) *Scanners {
	return &Scanners{verifier: v, byID: make(map[string]*Scanner)}
}

// For returns the student's scanner, creating an armed one on first use.
func (r *Scanners) For(studentID string) *Scanner {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[studentID]
	if !ok {
		s = NewScanner(r.verifier, studentID)
		r.byID[studentID] = s
	}
	return s
}
