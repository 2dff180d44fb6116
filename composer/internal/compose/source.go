package compose

import (
	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/pkg/types"
)

const (
	// IngressType is the agent's source type for events sent by upstream agents.
	IngressType = "vector"

	// RawConfigKey holds caller text the agent receives unparsed.
	RawConfigKey = "raw_config"
)

// ResolveSource materializes the ingress source. It reports false when the
// source is disabled.
//
// The base config is merged first; type and address are set after it so the
// base cannot override them. The port is concatenated as given.
func ResolveSource(in config.Ingress) (IngressSource, bool) {
	if !in.Enabled {
		return IngressSource{}, false
	}

	body := &types.Fragment{}
	body.Merge(&in.Config)
	body.Set("type", IngressType)
	body.Set("address", in.ListenAddress+":"+string(in.ListenPort))
	if in.RawConfig != "" {
		body.Set(RawConfigKey, types.RawText(in.RawConfig))
	}

	return IngressSource{ID: in.ID, Body: body}, true
}
