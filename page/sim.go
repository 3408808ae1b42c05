package page

import "sync"

// Sim is a scriptable Page for tests and offline replay. Setters
// mutate state and emit the corresponding events to subscribers.
// Callbacks run synchronously on the caller's goroutine with no Sim
// locks held.
type Sim struct {
	mu sync.Mutex

	url       string
	title     string
	referrer  string
	userAgent string

	visible  bool
	focused  bool
	scrollX  int
	scrollY  int
	vpW, vpH int
	ctW, ctH int

	nextID     int
	visibility map[int]func(bool)
	focus      map[int]func(bool)
	scroll     map[int]func()
	click      map[int]func(Click)
	hide       map[int]func()
}

// NewSim creates a visible, focused page at url with a zero scroll
// offset.
func NewSim(url string) *Sim {
	return &Sim{
		url:        url,
		visible:    true,
		focused:    true,
		visibility: make(map[int]func(bool)),
		focus:      make(map[int]func(bool)),
		scroll:     make(map[int]func()),
		click:      make(map[int]func(Click)),
		hide:       make(map[int]func()),
	}
}

func (s *Sim) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Sim) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Sim) Referrer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referrer
}

func (s *Sim) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

func (s *Sim) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Sim) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

func (s *Sim) ScrollPosition() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollX, s.scrollY
}

func (s *Sim) Viewport() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpW, s.vpH
}

func (s *Sim) ContentSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctW, s.ctH
}

// SetTitle updates the document title.
func (s *Sim) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// SetReferrer updates the document referrer.
func (s *Sim) SetReferrer(ref string) {
	s.mu.Lock()
	s.referrer = ref
	s.mu.Unlock()
}

// SetUserAgent updates the reported user-agent string.
func (s *Sim) SetUserAgent(ua string) {
	s.mu.Lock()
	s.userAgent = ua
	s.mu.Unlock()
}

// SetViewport updates viewport dimensions.
func (s *Sim) SetViewport(w, h int) {
	s.mu.Lock()
	s.vpW, s.vpH = w, h
	s.mu.Unlock()
}

// SetContentSize updates rendered content dimensions.
func (s *Sim) SetContentSize(w, h int) {
	s.mu.Lock()
	s.ctW, s.ctH = w, h
	s.mu.Unlock()
}

// SetVisible updates visibility and notifies subscribers when the
// state changed.
func (s *Sim) SetVisible(visible bool) {
	s.mu.Lock()
	if s.visible == visible {
		s.mu.Unlock()
		return
	}
	s.visible = visible
	fns := collect(s.visibility)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(visible)
	}
}

// SetFocused updates focus and notifies subscribers when the state
// changed.
func (s *Sim) SetFocused(focused bool) {
	s.mu.Lock()
	if s.focused == focused {
		s.mu.Unlock()
		return
	}
	s.focused = focused
	fns := collect(s.focus)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(focused)
	}
}

// SetScroll moves the scroll offset and emits a scroll event. A
// zero-delta call still emits, matching browsers that fire spurious
// scroll events on load.
func (s *Sim) SetScroll(x, y int) {
	s.mu.Lock()
	s.scrollX, s.scrollY = x, y
	fns := collect(s.scroll)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// EmitClick delivers a click to subscribers.
func (s *Sim) EmitClick(c Click) {
	s.mu.Lock()
	fns := collect(s.click)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// EmitHide delivers a page-hide signal to subscribers.
func (s *Sim) EmitHide() {
	s.mu.Lock()
	fns := collect(s.hide)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Sim) OnVisibilityChange(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.visibility[id] = fn
	return remover(&s.mu, s.visibility, id)
}

func (s *Sim) OnFocusChange(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.focus[id] = fn
	return remover(&s.mu, s.focus, id)
}

func (s *Sim) OnScroll(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.scroll[id] = fn
	return remover(&s.mu, s.scroll, id)
}

func (s *Sim) OnClick(fn func(Click)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.click[id] = fn
	return remover(&s.mu, s.click, id)
}

func (s *Sim) OnHide(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.hide[id] = fn
	return remover(&s.mu, s.hide, id)
}

// remover builds an idempotent unsubscribe for id in m.
func remover[F any](mu *sync.Mutex, m map[int]F, id int) func() {
	return func() {
		mu.Lock()
		delete(m, id)
		mu.Unlock()
	}
}

func collect[F any](m map[int]F) []F {
	fns := make([]F, 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}
