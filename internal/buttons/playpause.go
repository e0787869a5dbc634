// Package buttons provides the built-in toolbar buttons.
package buttons

import (
	"context"
	"fmt"

	"mediaplayer/pkg/plugin"

	"go.uber.org/zap"
)

const (
	// PlayPauseName is the registered name of the play/pause button.
	PlayPauseName = "es.upv.paella.playPauseButton"

	iconPlay  = "play"
	iconPause = "pause"
)

// PlayPause toggles playback of the whole session.
type PlayPause struct {
	*plugin.ButtonBase
	player plugin.Controller
}

// NewPlayPause creates the button. It starts showing the play icon.
func NewPlayPause(config plugin.Config, player plugin.Controller, logger *zap.Logger) *PlayPause {
	b := &PlayPause{
		ButtonBase: plugin.NewButtonBase(PlayPauseName, config, logger),
		player:     player,
	}
	b.showPaused(true)
	return b
}

func (b *PlayPause) showPaused(paused bool) {
	if paused {
		b.SetIcon(iconPlay)
		b.SetTitle("Play")
		return
	}
	b.SetIcon(iconPause)
	b.SetTitle("Pause")
}

// Action plays when paused and pauses when playing.
func (b *PlayPause) Action(ctx context.Context) error {
	paused, err := b.player.Paused(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}

	if paused {
		err = b.player.Play(ctx)
	} else {
		err = b.player.Pause(ctx)
	}
	if err != nil {
		return err
	}

	b.showPaused(!paused)
	b.Logger().Debug("Playback toggled", zap.Bool("playing", paused))
	return nil
}
