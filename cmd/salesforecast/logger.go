package main

import (
	"log/slog"

	"github.com/aouyang1/go-salesforecast/config"
	"github.com/spf13/cobra"
)

func setDefaultLogger(cfg *config.Config, cmd *cobra.Command) {
	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
}
