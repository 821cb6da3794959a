package services

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// PanelState is the visibility state of an overlay panel
type PanelState string

const (
	PanelClosed    PanelState = "closed"
	PanelOpen      PanelState = "open"
	PanelMinimized PanelState = "minimized"
	PanelMaximized PanelState = "maximized"
)

// PanelKind identifies one of the overlay panels
type PanelKind string

const (
	PanelComposer PanelKind = "composer"
	PanelTriage   PanelKind = "triage"
)

// PanelView is what a renderer needs to draw a panel
type PanelView struct {
	Visible   bool
	Minimized bool
	Maximized bool
}

// PanelController is the state machine of one overlay panel. Minimized and
// maximized are mutually exclusive by construction.
type PanelController struct {
	kind    PanelKind
	mu      sync.Mutex
	state   PanelState
	onClose func(ctx context.Context) error
	logger  *log.Logger
}

// NewPanelController creates a closed panel
func NewPanelController(kind PanelKind) *PanelController {
	return &PanelController{kind: kind, state: PanelClosed}
}

// SetLogger sets the logger for debug output
func (p *PanelController) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// OnClose registers the hook that runs before a user-initiated close
func (p *PanelController) OnClose(hook func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = hook
}

// Kind returns the panel kind
func (p *PanelController) Kind() PanelKind {
	return p.kind
}

// Open shows the panel, restoring it if minimized
func (p *PanelController) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case PanelClosed, PanelMinimized:
		p.setLocked(PanelOpen)
	}
}

// ToggleMinimize collapses or restores the panel
func (p *PanelController) ToggleMinimize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case PanelOpen, PanelMaximized:
		p.setLocked(PanelMinimized)
	case PanelMinimized:
		p.setLocked(PanelOpen)
	}
}

// ToggleMaximize enlarges or restores the panel. Ignored while minimized.
func (p *PanelController) ToggleMaximize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case PanelOpen:
		p.setLocked(PanelMaximized)
	case PanelMaximized:
		p.setLocked(PanelOpen)
	}
}

// Close runs the close hook and then closes the panel. A failing hook
// leaves the panel as it was.
func (p *PanelController) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.state == PanelClosed {
		p.mu.Unlock()
		return nil
	}
	hook := p.onClose
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			if p.logger != nil {
				p.logger.Printf("PanelController: %s close hook failed: %v", p.kind, err)
			}
			return fmt.Errorf("failed to close %s panel: %w", p.kind, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(PanelClosed)
	return nil
}

// Dismiss closes the panel without running the hook
func (p *PanelController) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(PanelClosed)
}

// State returns the current state
func (p *PanelController) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View returns the render flags for the current state
func (p *PanelController) View() PanelView {
	switch p.State() {
	case PanelOpen:
		return PanelView{Visible: true}
	case PanelMinimized:
		return PanelView{Visible: true, Minimized: true}
	case PanelMaximized:
		return PanelView{Visible: true, Maximized: true}
	default:
		return PanelView{}
	}
}

func (p *PanelController) setLocked(s PanelState) {
	if p.state == s {
		return
	}
	if p.logger != nil {
		p.logger.Printf("PanelController: %s %s -> %s", p.kind, p.state, s)
	}
	p.state = s
}
