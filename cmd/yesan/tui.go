package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/yesan/internal/config"
	"github.com/Veraticus/yesan/internal/tui"
	"github.com/Veraticus/yesan/internal/tui/themes"
)

func tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive client (default)",
		Long: `Start the full-screen client with the home, budget, voucher and anomaly
screens and the regulation chat panel (Ctrl+K).

Logs go to logging.file while the client runs.`,
		RunE: runTUI,
	}
	addTUIFlags(cmd)
	return cmd
}

func addTUIFlags(cmd *cobra.Command) {
	cmd.Flags().String("screen", "/", "initial screen path (/, /budget, /voucher, /anomaly)")
	cmd.Flags().String("theme", "", "color theme (default, catppuccin-mocha)")
	cmd.Flags().Bool("no-alt-screen", false, "render inline instead of the alternate screen")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// Redirect before building the app so every component logs to the file.
	closeLogs, err := redirectLogs(config.ExpandPath(viper.GetString("logging.file")))
	if err != nil {
		return err
	}
	defer closeLogs()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	voucherOpts, closeExtractor, err := a.voucherOptions(ctx)
	if err != nil {
		return err
	}
	defer closeExtractor()

	screen, _ := cmd.Flags().GetString("screen")
	themeName, _ := cmd.Flags().GetString("theme")
	if themeName == "" {
		themeName = viper.GetString("tui.theme")
	}
	noAlt, _ := cmd.Flags().GetBool("no-alt-screen")

	if err := tui.Run(ctx,
		tui.WithBackend(a.client),
		tui.WithLogger(a.logger),
		tui.WithTheme(themes.GetTheme(themeName)),
		tui.WithInitialPath(screen),
		tui.WithReportDir(a.cfg.ReportDir),
		tui.WithVoucherOptions(voucherOpts...),
		tui.WithDashboardOptions(a.dashboardOptions(ctx)...),
		tui.WithAltScreen(!noAlt),
	); err != nil {
		return fmt.Errorf("interactive client failed: %w", err)
	}
	return nil
}
