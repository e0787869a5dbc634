package buttons

import (
	"context"
	"errors"

	"mediaplayer/pkg/plugin"

	"go.uber.org/zap"
)

// SecondaryStreamsName is the registered name of the secondary streams button.
const SecondaryStreamsName = "es.upv.paella.secondaryStreamsButton"

// SecondaryStreams switches every stream except the main audio one between
// its render surface and its shadow snapshot.
type SecondaryStreams struct {
	*plugin.ButtonBase
	player plugin.Controller
}

// NewSecondaryStreams creates the button.
func NewSecondaryStreams(config plugin.Config, player plugin.Controller, logger *zap.Logger) *SecondaryStreams {
	b := &SecondaryStreams{
		ButtonBase: plugin.NewButtonBase(SecondaryStreamsName, config, logger),
		player:     player,
	}
	b.SetIcon("layers")
	b.SetTitle("Hide secondary streams")
	return b
}

func (b *SecondaryStreams) secondary() []string {
	names := b.player.StreamNames()
	if len(names) <= 1 {
		return nil
	}
	return names[1:]
}

// Action disables every secondary stream when any of them is enabled, and
// enables them all otherwise.
func (b *SecondaryStreams) Action(ctx context.Context) error {
	streams := b.secondary()
	if len(streams) == 0 {
		b.Logger().Debug("No secondary streams to toggle")
		return nil
	}

	anyEnabled := false
	for _, name := range streams {
		if b.player.StreamEnabled(name) {
			anyEnabled = true
			break
		}
	}

	var errs []error
	for _, name := range streams {
		if anyEnabled {
			_, err := b.player.DisableStream(name)
			errs = append(errs, err)
		} else {
			errs = append(errs, b.player.EnableStream(name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if anyEnabled {
		b.SetTitle("Show secondary streams")
	} else {
		b.SetTitle("Hide secondary streams")
	}
	b.Logger().Info("Secondary streams toggled",
		zap.Strings("streams", streams),
		zap.Bool("enabled", !anyEnabled))
	return nil
}
