package mp4

import (
	"mediaplayer/pkg/plugin"
)

func init() {
	plugin.RegisterFactory(plugin.FactoryInfo{
		Name:        PluginName,
		Description: "Progressive mp4 video format",
		Priority:    plugin.PriorityDefault,
		Order:       20, // Lower orders are tried first during format selection
		Factory:     createPlugin,
	})
}

// createPlugin creates the format from the plugin context.
func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	return NewPlugin(ctx.ConfigFor(PluginName), ctx.Resolver, ctx.Capabilities, ctx.Logger), nil
}
