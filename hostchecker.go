// Package hostchecker pings a set of hosts and mails a summary of the ones
// that did not answer.
package hostchecker

import (
	"context"

	"git.ghink.net/ghink/host-checker/internal/method"
	"git.ghink.net/ghink/host-checker/internal/model"
)

type Config = model.Config

func LoadConfig(args []string) (Config, error) {
	return method.LoadConfig(args)
}

func Run(ctx context.Context, cfg Config) error {
	return method.Run(ctx, cfg)
}
