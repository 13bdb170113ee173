package presentation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/joeconsedine/claude-maze/internal/domain"
	"github.com/joeconsedine/claude-maze/internal/metrics"
)

// View is the snapshot returned by every navigation operation.
type View struct {
	Slide         domain.Slide `json:"slide"`
	SlideIndex    int          `json:"slide_index"`
	SlideCount    int          `json:"slide_count"`
	SubSlideIndex int          `json:"sub_slide_index"`
	SubSlideTotal int          `json:"sub_slide_total"`
	SubSlideData  any          `json:"sub_slide_data,omitempty"`
}

// LaserSnapshot is the result of reading the laser point window.
type LaserSnapshot struct {
	Points     []domain.LaserPoint `json:"points"`
	Active     bool                `json:"active"`
	LastUpdate time.Time           `json:"last_update"`
}

// State owns the live presentation: slide and sub-slide indices, the rolling
// laser point window, and the video stream descriptor. One mutex linearizes
// every operation; none of them block or touch I/O while holding it.
type State struct {
	mu    sync.Mutex
	clock clockwork.Clock

	slides   []domain.Slide
	slideIdx int
	subIdx   int

	laserTTL     time.Duration
	laserPoints  []domain.LaserPoint
	laserActive  bool
	laserUpdated time.Time

	video domain.VideoState
}

// NewState creates the presentation state over an initial deck. A presentation
// with zero slides is a precondition violation, not a runtime condition.
func NewState(slides []domain.Slide, laserTTL time.Duration, clock clockwork.Clock) *State {
	if len(slides) == 0 {
		panic("presentation: slide deck must not be empty")
	}
	if laserTTL <= 0 {
		panic("presentation: laser TTL must be positive")
	}

	deck := make([]domain.Slide, len(slides))
	copy(deck, slides)

	metrics.SlidesLoaded.Set(float64(len(deck)))

	return &State{
		clock:    clock,
		slides:   deck,
		laserTTL: laserTTL,
		video:    domain.VideoState{Type: domain.VideoNone},
	}
}

// view builds the snapshot for the current indices. Callers hold s.mu.
func (s *State) view() View {
	slide := s.slides[s.slideIdx]
	v := View{
		Slide:         slide,
		SlideIndex:    s.slideIdx,
		SlideCount:    len(s.slides),
		SubSlideIndex: s.subIdx,
		SubSlideTotal: len(slide.SubSlides),
	}
	if s.subIdx < len(slide.SubSlides) {
		v.SubSlideData = slide.SubSlides[s.subIdx].Data
	}
	return v
}

// CurrentView returns a snapshot of the current view. Never mutates.
func (s *State) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Slides returns a copy of the full deck together with the current index.
func (s *State) Slides() ([]domain.Slide, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck := make([]domain.Slide, len(s.slides))
	copy(deck, s.slides)
	return deck, s.slideIdx
}

// AdvanceSlide moves to the next slide, wrapping past the last slide back to
// index 0. The sub-slide index resets on every slide change.
func (s *State) AdvanceSlide() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slideIdx = (s.slideIdx + 1) % len(s.slides)
	s.subIdx = 0
	metrics.SlideNavigationsTotal.WithLabelValues("advance").Inc()
	return s.view()
}

// RetreatSlide moves to the previous slide, wrapping before index 0 to the
// last slide.
func (s *State) RetreatSlide() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slideIdx = (s.slideIdx - 1 + len(s.slides)) % len(s.slides)
	s.subIdx = 0
	metrics.SlideNavigationsTotal.WithLabelValues("retreat").Inc()
	return s.view()
}

// GotoSlide jumps to the given index. An out-of-range index is silently
// ignored and the current view returned unchanged.
func (s *State) GotoSlide(index int) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= 0 && index < len(s.slides) && index != s.slideIdx {
		s.slideIdx = index
		s.subIdx = 0
		metrics.SlideNavigationsTotal.WithLabelValues("goto").Inc()
	}
	return s.view()
}

// AdvanceSubSlide moves to the next sub-slide of the current slide with
// wraparound. A slide without sub-slides makes this a no-op.
func (s *State) AdvanceSubSlide() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.slides[s.slideIdx].SubSlides); n > 0 {
		s.subIdx = (s.subIdx + 1) % n
		metrics.SlideNavigationsTotal.WithLabelValues("sub_advance").Inc()
	}
	return s.view()
}

// RetreatSubSlide moves to the previous sub-slide with wraparound.
func (s *State) RetreatSubSlide() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.slides[s.slideIdx].SubSlides); n > 0 {
		s.subIdx = (s.subIdx - 1 + n) % n
		metrics.SlideNavigationsTotal.WithLabelValues("sub_retreat").Inc()
	}
	return s.view()
}

// AppendSlide adds a slide at the end of the deck and returns its ID. The
// deck is append-only; current indices are unaffected.
func (s *State) AppendSlide(slide domain.Slide) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slide.ID == "" {
		slide.ID = uuid.NewString()
	}
	s.slides = append(s.slides, slide)
	metrics.SlidesLoaded.Set(float64(len(s.slides)))
	return slide.ID
}

// pruneLaser drops every sample older than the TTL. Callers hold s.mu.
func (s *State) pruneLaser(now time.Time) {
	cutoff := now.Add(-s.laserTTL)
	kept := s.laserPoints[:0]
	for _, p := range s.laserPoints {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	s.laserPoints = kept
	metrics.LaserPointsBuffered.Set(float64(len(s.laserPoints)))
}

// ReportLaserPoint appends a sample and, in the same atomic step, discards
// every sample older than the TTL.
func (s *State) ReportLaserPoint(x, y, intensity float64, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.pruneLaser(now)
	s.laserPoints = append(s.laserPoints, domain.LaserPoint{
		X:         x,
		Y:         y,
		Intensity: intensity,
		Width:     width,
		Height:    height,
		Timestamp: now,
	})
	s.laserUpdated = now
	metrics.LaserPointsBuffered.Set(float64(len(s.laserPoints)))
	metrics.LaserPointsReportedTotal.Inc()
}

// CurrentLaserPoints prunes expired samples and returns the remainder in
// report order, together with the active flag and last mutation time.
func (s *State) CurrentLaserPoints() LaserSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLaser(s.clock.Now())

	points := make([]domain.LaserPoint, len(s.laserPoints))
	copy(points, s.laserPoints)
	return LaserSnapshot{
		Points:     points,
		Active:     s.laserActive,
		LastUpdate: s.laserUpdated,
	}
}

// SetLaserActive toggles the laser. Turning it off clears the window
// immediately; the trail does not persist across an off/on cycle.
func (s *State) SetLaserActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.laserActive = active
	if !active {
		s.laserPoints = s.laserPoints[:0]
		metrics.LaserPointsBuffered.Set(0)
	}
	s.laserUpdated = s.clock.Now()
}

// ClearLaserPoints unconditionally empties the window.
func (s *State) ClearLaserPoints() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.laserPoints = s.laserPoints[:0]
	s.laserUpdated = s.clock.Now()
	metrics.LaserPointsBuffered.Set(0)
}

// SetVideoStream replaces the video stream descriptor.
func (s *State) SetVideoStream(videoType domain.VideoType, url, roomID string) domain.VideoState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.video = domain.VideoState{Type: videoType, URL: url, RoomID: roomID}
	return s.video
}

// StopVideoStream resets to the none variant with empty url and room.
func (s *State) StopVideoStream() domain.VideoState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.video = domain.VideoState{Type: domain.VideoNone}
	return s.video
}

// CurrentVideoState returns the current video descriptor.
func (s *State) CurrentVideoState() domain.VideoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}
