package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/yesan/internal/anomaly"
	"github.com/Veraticus/yesan/internal/cli"
	"github.com/Veraticus/yesan/internal/model"
)

func anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "anomalies",
		Aliases: []string{"anomaly"},
		Short:   "Review detected voucher anomalies",
	}

	cmd.AddCommand(anomaliesListCmd())
	cmd.AddCommand(anomaliesAlertCmd())

	return cmd
}

func loadReview(cmd *cobra.Command) (*app, *anomaly.Review, error) {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	review := anomaly.NewReview(a.client, a.logger)
	if err := review.Refresh(ctx); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to load anomalies: %w", err)
	}
	return a, review, nil
}

func anomaliesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vouchers with detected anomalies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filterName, _ := cmd.Flags().GetString("filter")
			details, _ := cmd.Flags().GetBool("details")

			filter, err := anomaly.ParseFilter(filterName)
			if err != nil {
				return err
			}

			a, review, err := loadReview(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			review.SetFilter(filter)
			snap := review.Snapshot()
			cli.RenderAnomalies(cmd.OutOrStdout(), snap.Summary, snap.Visible, details)
			return nil
		},
	}
	cmd.Flags().String("filter", string(anomaly.FilterAll), "severity filter (all, critical, high, medium, low)")
	cmd.Flags().Bool("details", false, "show each anomaly with its rule explanation")
	return cmd
}

func anomaliesAlertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alert <voucher-id>",
		Short: "E-mail an alert for a voucher's anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, review, err := loadReview(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				target model.AnomalyResult
				found  bool
			)
			for _, r := range review.Snapshot().Results {
				if r.Voucher.VoucherID == args[0] {
					target, found = r, true
					break
				}
			}
			if !found {
				return fmt.Errorf("no anomalies reported for voucher %s", args[0])
			}

			msg, err := review.SendAlert(cmd.Context(), target)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.Text(msg))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Text(msg))
			return nil
		},
	}
}
