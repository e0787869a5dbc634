package buttons

import (
	"fmt"

	"mediaplayer/pkg/plugin"
)

func init() {
	plugin.RegisterFactory(plugin.FactoryInfo{
		Name:        PlayPauseName,
		Description: "Toggles playback of every stream",
		Priority:    plugin.PriorityDefault,
		Order:       60,
		Factory:     createPlayPause,
	})
	plugin.RegisterFactory(plugin.FactoryInfo{
		Name:        SecondaryStreamsName,
		Description: "Shows or hides the secondary streams",
		Priority:    plugin.PriorityDefault,
		Order:       70,
		Factory:     createSecondaryStreams,
	})
}

func createPlayPause(ctx *plugin.Context) (plugin.Plugin, error) {
	if ctx == nil || ctx.Player == nil {
		return nil, fmt.Errorf("%s requires a player", PlayPauseName)
	}
	return NewPlayPause(ctx.ConfigFor(PlayPauseName), ctx.Player, ctx.Logger), nil
}

func createSecondaryStreams(ctx *plugin.Context) (plugin.Plugin, error) {
	if ctx == nil || ctx.Player == nil {
		return nil, fmt.Errorf("%s requires a player", SecondaryStreamsName)
	}
	return NewSecondaryStreams(ctx.ConfigFor(SecondaryStreamsName), ctx.Player, ctx.Logger), nil
}
