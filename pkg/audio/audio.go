// Package audio provides PCM output backends for the spatial audio graph.
package audio

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
)

type Backend string

const (
	BackendAuto  = Backend("auto")
	BackendPulse = Backend("pulse")
	BackendOto   = Backend("oto")
	BackendNone  = Backend("none")
)

func NewPlayer(ctx context.Context, backend Backend) (PlayerPCM, error) {
	switch backend {
	case BackendAuto, "":
		return NewPlayerAuto(ctx), nil
	case BackendPulse:
		return NewPlayerPulse(), nil
	case BackendOto:
		return NewPlayerOto(), nil
	case BackendNone:
		return PlayerPCMDummy{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend '%s'", backend)
	}
}

// NewPlayerAuto returns the first backend that responds to Ping.
func NewPlayerAuto(ctx context.Context) PlayerPCM {
	for _, factory := range []func() PlayerPCM{
		NewPlayerPulse,
		NewPlayerOto,
	} {
		player := factory()
		err := player.Ping(ctx)
		if err == nil {
			logger.Debugf(ctx, "using audio backend %T", player)
			return player
		}
		logger.Debugf(ctx, "audio backend %T is not available: %v", player, err)
	}

	logger.Warnf(ctx, "no audio backend is available, the sound is discarded")
	return PlayerPCMDummy{}
}
