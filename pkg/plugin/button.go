package plugin

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Side is the horizontal placement of a button inside its container.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	// SideAny matches both sides in discovery queries. It is never a
	// valid placement for a button.
	SideAny Side = "any"
)

// ParentContainer is the layout region a button is attached to.
type ParentContainer string

const (
	ParentPlaybackBar    ParentContainer = "playbackBar"
	ParentVideoContainer ParentContainer = "videoContainer"
)

// TitleSize is the size class of the button caption.
type TitleSize string

const (
	TitleSmall  TitleSize = "small"
	TitleMedium TitleSize = "medium"
	TitleLarge  TitleSize = "large"
)

// ErrAlreadyAttached is returned when a presentation handle is attached to a
// button that already has one.
var ErrAlreadyAttached = errors.New("presentation handle already attached")

// PresentationHandle is the opaque render handle the layout collaborator
// owns. Buttons hold a non-owning reference and only toggle its visibility.
type PresentationHandle interface {
	SetVisible(visible bool)
}

// Button is a toolbar affordance. Hooks are invoked by the event wiring
// collaborator; none of them touch playback state directly.
type Button interface {
	Plugin

	Side() Side
	ParentContainer() ParentContainer
	Icon() string
	Title() string
	TitleSize() TitleSize
	ClassName() string

	// AttachPresentation injects the render handle. It may be called once.
	AttachPresentation(h PresentationHandle) error
	Presentation() PresentationHandle

	Hide()
	Show()

	MouseOver(ctx context.Context)
	MouseOut(ctx context.Context)
	Action(ctx context.Context) error
}

// ButtonBase implements Button with the default hooks. Concrete buttons
// embed it and override Action and, where needed, the hover hooks.
type ButtonBase struct {
	*Base

	logger *zap.Logger

	mu     sync.RWMutex
	icon   string
	title  string
	handle PresentationHandle
}

// NewButtonBase creates a button with side and parent container read from
// the "side" and "parentContainer" options.
func NewButtonBase(name string, config Config, logger *zap.Logger) *ButtonBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &ButtonBase{
		Base:   NewBase(name, config),
		logger: logger.Named("buttons"),
	}
	b.icon = b.config.String("icon", "")
	b.title = b.config.String("title", "")
	return b
}

// Type implements Plugin.
func (b *ButtonBase) Type() Type { return TypeButton }

// Side defaults to left.
func (b *ButtonBase) Side() Side {
	if s := Side(b.config.String("side", "")); s == SideLeft || s == SideRight {
		return s
	}
	return SideLeft
}

// ParentContainer defaults to the playback bar, also for unknown values.
func (b *ButtonBase) ParentContainer() ParentContainer {
	if p := ParentContainer(b.config.String("parentContainer", "")); p == ParentPlaybackBar || p == ParentVideoContainer {
		return p
	}
	return ParentPlaybackBar
}

func (b *ButtonBase) Icon() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.icon
}

// SetIcon replaces the icon markup.
func (b *ButtonBase) SetIcon(icon string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.icon = icon
}

func (b *ButtonBase) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

// SetTitle replaces the caption.
func (b *ButtonBase) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
}

func (b *ButtonBase) TitleSize() TitleSize { return TitleMedium }

func (b *ButtonBase) ClassName() string { return "" }

// Logger returns the button's namespaced logger.
func (b *ButtonBase) Logger() *zap.Logger { return b.logger }

// AttachPresentation implements Button.
func (b *ButtonBase) AttachPresentation(h PresentationHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle != nil {
		return ErrAlreadyAttached
	}
	b.handle = h
	return nil
}

// Presentation returns the attached handle, or nil.
func (b *ButtonBase) Presentation() PresentationHandle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handle
}

// Hide is a no-op until a handle is attached.
func (b *ButtonBase) Hide() {
	if h := b.Presentation(); h != nil {
		h.SetVisible(false)
	}
}

// Show is a no-op until a handle is attached.
func (b *ButtonBase) Show() {
	if h := b.Presentation(); h != nil {
		h.SetVisible(true)
	}
}

func (b *ButtonBase) MouseOver(context.Context) {}

func (b *ButtonBase) MouseOut(context.Context) {}

// Action reports that the button has no behaviour instead of failing.
func (b *ButtonBase) Action(context.Context) error {
	b.logger.Info("Action not implemented in button plugin", zap.String("plugin", b.Name()))
	return nil
}

// GetButtons returns the buttons in parent whose side matches. SideAny
// matches both sides. Registration order is preserved.
func GetButtons(r *Registry, side Side, parent ParentContainer) []Button {
	matches := r.Query(TypeButton, func(p Plugin) bool {
		btn, ok := p.(Button)
		if !ok {
			return false
		}
		return (side == SideAny || btn.Side() == side) && btn.ParentContainer() == parent
	})

	result := make([]Button, 0, len(matches))
	for _, p := range matches {
		result = append(result, p.(Button))
	}
	return result
}

// LeftButtons returns the playback bar buttons on the left side.
func LeftButtons(r *Registry) []Button {
	return GetButtons(r, SideLeft, ParentPlaybackBar)
}

// RightButtons returns the playback bar buttons on the right side.
func RightButtons(r *Registry) []Button {
	return GetButtons(r, SideRight, ParentPlaybackBar)
}
