package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/yesan/internal/mockserver"
)

func mockBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve a fake backend for demos and local development",
		Long: `Serve the budget, anomaly, recommendation and Q&A endpoints with
generated data. Point api.base_url and api.qna_base_url at it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			seed, _ := cmd.Flags().GetInt64("seed")

			return mockserver.New(seed, slog.Default()).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", ":5005", "listen address")
	cmd.Flags().Int64("seed", 1, "seed for the generated data")
	return cmd
}
