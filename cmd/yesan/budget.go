package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/yesan/internal/cli"
	"github.com/Veraticus/yesan/internal/config"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/sheets"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budget",
		Aliases: []string{"budgets"},
		Short:   "Budget dashboard operations",
	}

	cmd.AddCommand(budgetShowCmd())
	cmd.AddCommand(budgetAnalyzeCmd())
	cmd.AddCommand(budgetRecommendCmd())
	cmd.AddCommand(budgetFeedbackCmd())
	cmd.AddCommand(budgetReportCmd())
	cmd.AddCommand(budgetExportSheetCmd())
	cmd.AddCommand(budgetFeedbackLogCmd())

	return cmd
}

// loadDashboard builds a dashboard and fetches the budgets.
func loadDashboard(cmd *cobra.Command) (*app, *dashboard.Dashboard, error) {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	d := a.dashboard(ctx)
	if _, err := d.Refresh(ctx); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	return a, d, nil
}

func budgetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show budgets per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cli.RenderBudgets(cmd.OutOrStdout(), d.Snapshot())
			return nil
		},
	}
}

func budgetAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Request an AI analysis of the current budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userContext, _ := cmd.Flags().GetString("context")

			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := d.Analyze(cmd.Context(), userContext)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderBox(cli.FormatTitle("🤖", "AI 예산 분석"), analysis))
			return err
		},
	}
	cmd.Flags().String("context", "", "situation to consider, e.g. planned purchases")
	return cmd
}

func budgetRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <category>",
		Short: "Ask the reinforcement-learning recommender about a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := recommend(cmd, d, args[0])
			if err != nil {
				return err
			}
			cli.RenderRecommendation(cmd.OutOrStdout(), args[0], rec)
			return nil
		},
	}
	addRecommendFlags(cmd)
	return cmd
}

func addRecommendFlags(cmd *cobra.Command) {
	cmd.Flags().Int("urgency", 50, fmt.Sprintf("urgency level (%d-%d)", model.MinUrgency, model.MaxUrgency))
	cmd.Flags().String("context", "", "run an analysis with this context first")
}

// recommend applies the urgency and optional analysis flags, then opens a
// recommendation on category. A failed analysis leaves the fallback text in
// place and the recommendation goes ahead with it.
func recommend(cmd *cobra.Command, d *dashboard.Dashboard, category string) (model.Recommendation, error) {
	ctx := cmd.Context()
	urgency, _ := cmd.Flags().GetInt("urgency")
	if err := d.SetUrgency(urgency); err != nil {
		return model.Recommendation{}, err
	}
	if userContext, _ := cmd.Flags().GetString("context"); userContext != "" {
		if _, err := d.Analyze(ctx, userContext); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(dashboard.AnalysisErrorMessage))
		}
	}
	return d.Recommend(ctx, category)
}

func budgetFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <category> <action> <reward>",
		Short: "Report the outcome of an action to the recommender",
		Long: `Report how an action worked out for a category. The action is one of
증액, 유지, 감소 (or increase, hold, decrease); the reward is an integer
between -100 and 100. A fresh recommendation is requested first so the
feedback carries the current state.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := model.ParseAction(args[1])
			if err != nil {
				return err
			}
			reward, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid reward %q: %w", args[2], err)
			}

			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := recommend(cmd, d, args[0]); err != nil {
				return err
			}
			if err := d.Feedback(cmd.Context(), action, reward); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Text(dashboard.FeedbackSuccessMessage))
			return nil
		},
	}
	addRecommendFlags(cmd)
	return cmd
}

func budgetReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyze the budgets and download the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userContext, _ := cmd.Flags().GetString("context")
			dir, _ := cmd.Flags().GetString("dir")

			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if dir == "" {
				dir = a.cfg.ReportDir
			}

			analysis, err := d.Analyze(ctx, userContext)
			if err != nil {
				a.logger.Warn("Report uses the fallback analysis", "error", err)
			}

			snap := d.Snapshot()
			body, size, err := a.client.BudgetReportStream(ctx, snap.Budgets, analysis)
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			path, err := cli.SaveDownload(ctx, os.Stderr, body, size, config.ExpandPath(dir), dashboard.ReportFilename(time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("보고서가 저장되었습니다: "+path))
			return nil
		},
	}
	cmd.Flags().String("context", "", "situation to consider in the analysis")
	cmd.Flags().String("dir", "", "directory to save the report in (default: report.dir)")
	return cmd
}

func budgetExportSheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-sheet",
		Short: "Export the budget dashboard to Google Sheets",
		Long: `Write the budgets, totals and the AI analysis to the "예산 현황" tab of a
Google spreadsheet. Configure sheets.* (or GOOGLE_SHEETS_*) with either a
service account or OAuth2 credentials; run 'yesan auth sheets' once for
OAuth2.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userContext, _ := cmd.Flags().GetString("context")
			skipAnalysis, _ := cmd.Flags().GetBool("no-analysis")

			sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}

			a, d, err := loadDashboard(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var analysis string
			if !skipAnalysis {
				analysis, _ = d.Analyze(ctx, userContext)
			}

			writer, err := sheets.NewWriter(ctx, *sheetsCfg, a.logger)
			if err != nil {
				return err
			}
			id, err := writer.Write(ctx, sheets.NewExport(d.Snapshot().Budgets, analysis, time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("https://docs.google.com/spreadsheets/d/"+id))
			return nil
		},
	}
	cmd.Flags().String("context", "", "situation to consider in the analysis")
	cmd.Flags().Bool("no-analysis", false, "export the numbers only")
	return cmd
}

func budgetFeedbackLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback-log",
		Short: "List feedback recorded on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.journal(ctx)
			if err != nil {
				return err
			}
			records, err := store.ListFeedback(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("기록된 피드백이 없습니다."))
				return nil
			}
			cli.RenderFeedbackLog(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of entries")
	return cmd
}

// parseAssignment splits "field=value" where field is a voucher field key or
// its Korean label.
func parseAssignment(s string) (model.Field, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("expected field=value, got %q", s)
	}
	key = strings.TrimSpace(key)
	for _, f := range model.EditableFields {
		if string(f) == key || f.Label() == key {
			return f, strings.TrimSpace(value), nil
		}
	}
	return "", "", fmt.Errorf("unknown voucher field %q", key)
}
