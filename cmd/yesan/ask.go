package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/yesan/internal/chat"
	"github.com/Veraticus/yesan/internal/cli"
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the regulation assistant",
		Long: `Ask a question about the company's fund regulations and corporate cards.

With a question the answer is printed once. Without one an interactive
session starts; type exit or press Ctrl+D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			session := chat.NewSession(a.client, a.logger)
			if len(args) > 0 {
				reply, err := session.Send(cmd.Context(), strings.Join(args, " "))
				fmt.Fprintln(cmd.OutOrStdout(), cli.Text(reply.Content))
				return err
			}
			return askInteractive(cmd, session)
		},
	}
}

func askInteractive(cmd *cobra.Command, session *chat.Session) error {
	out := cmd.OutOrStdout()
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupts.HandleInterrupts(cmd.Context(), "규정 상담")
	reader := cli.NewLineReader(cmd.InOrStdin(), out)

	fmt.Fprintln(out, cli.RenderBox(cli.FormatTitle("💬", chat.PanelTitle), cli.Text(chat.Greeting)))
	fmt.Fprintln(out, cli.StyleSubtle(chat.QuickQHeading+":"))
	for _, q := range chat.QuickQuestions {
		fmt.Fprintln(out, cli.StyleSubtle("  • "+q))
	}

	for {
		line, err := reader.ReadLine(ctx, "질문>")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCancelled) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := session.Send(ctx, line)
		if errors.Is(err, chat.ErrEmptyQuestion) || errors.Is(err, chat.ErrBusy) {
			continue
		}
		fmt.Fprintln(out, cli.Text(reply.Content))
		fmt.Fprintln(out)
	}
}
