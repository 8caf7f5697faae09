package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/yesan/internal/cli"
	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/service"
	"github.com/Veraticus/yesan/internal/validation"
	"github.com/Veraticus/yesan/internal/voucher"
)

func voucherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "voucher",
		Aliases: []string{"vouchers"},
		Short:   "Write, validate and list vouchers",
		Long: `Write vouchers from the command line.

Fields are given as --set field=value, where field is the JSON key
(e.g. vendor, transaction_date) or the Korean label (e.g. 거래처).
Documents attached with --receipt, --tax-invoice or --invoice are read the
same way the form reads uploads.`,
	}

	cmd.AddCommand(voucherValidateCmd())
	cmd.AddCommand(voucherSubmitCmd())
	cmd.AddCommand(voucherListCmd())

	return cmd
}

func addDraftFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("set", nil, "field=value assignment (repeatable)")
	cmd.Flags().StringArray("receipt", nil, "receipt image or PDF (repeatable)")
	cmd.Flags().String("tax-invoice", "", "tax invoice image or PDF")
	cmd.Flags().String("invoice", "", "invoice image or PDF")
	cmd.Flags().Int("autofill", -1, "copy amount, vendor and date from the receipt at this index")
}

// buildDraft creates a form from the draft flags. Uploads run before the
// assignments so explicit values win over extracted ones.
func buildDraft(cmd *cobra.Command, a *app) (*voucher.Form, func(), error) {
	ctx := cmd.Context()

	opts, closeExtractor, err := a.voucherOptions(ctx)
	if err != nil {
		return nil, nil, err
	}
	form, err := voucher.NewForm(ctx, opts...)
	if err != nil {
		closeExtractor()
		return nil, nil, err
	}
	cleanup := func() {
		form.Close()
		closeExtractor()
	}

	if err := attachDocuments(cmd, form); err != nil {
		cleanup()
		return nil, nil, err
	}

	assignments, _ := cmd.Flags().GetStringArray("set")
	for _, s := range assignments {
		field, value, err := parseAssignment(s)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := form.Set(field, value); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%s: %w", field.Label(), err)
		}
	}
	return form, cleanup, nil
}

func attachDocuments(cmd *cobra.Command, form *voucher.Form) error {
	ctx := cmd.Context()

	receipts, _ := cmd.Flags().GetStringArray("receipt")
	taxInvoice, _ := cmd.Flags().GetString("tax-invoice")
	invoice, _ := cmd.Flags().GetString("invoice")

	upload := func(kind extract.Kind, path string) error {
		doc, err := extract.LoadDocument(path)
		if err != nil {
			return fmt.Errorf("%s: %w", kind.Label(), err)
		}
		att, err := form.Upload(ctx, kind, doc)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind.Label(), doc.Name, err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf("%s 처리 완료: %s", kind.Label(), att.Name)))
		return nil
	}

	for _, path := range receipts {
		if err := upload(extract.KindReceipt, path); err != nil {
			return err
		}
	}
	if taxInvoice != "" {
		if err := upload(extract.KindTaxInvoice, taxInvoice); err != nil {
			return err
		}
	}
	if invoice != "" {
		if err := upload(extract.KindInvoice, invoice); err != nil {
			return err
		}
	}

	if index, _ := cmd.Flags().GetInt("autofill"); index >= 0 {
		if err := form.AutoFillFromReceipt(index); err != nil {
			return err
		}
	}
	return nil
}

func voucherValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the cross-field checks on a draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			form, cleanup, err := buildDraft(cmd, a)
			if err != nil {
				return err
			}
			defer cleanup()

			draft := form.Draft()
			statuses := validation.EvaluateAll(draft, nil)
			cli.RenderStatuses(cmd.OutOrStdout(), draft, statuses)

			if failed := statuses.Blocking(draft); len(failed) > 0 {
				return errors.New(voucher.SubmitBlockedMessage)
			}
			return nil
		},
	}
	addDraftFlags(cmd)
	return cmd
}

func voucherSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate a draft and record it in the local journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			form, cleanup, err := buildDraft(cmd, a)
			if err != nil {
				return err
			}
			defer cleanup()

			record, err := form.Submit(cmd.Context())
			if err != nil {
				var missing *voucher.MissingFieldsError
				if errors.As(err, &missing) {
					return errors.New(missing.Error())
				}
				draft := form.Draft()
				cli.RenderStatuses(cmd.ErrOrStderr(), draft, validation.EvaluateAll(draft, nil))
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.Text(voucher.SubmitSuccessMessage))
			fmt.Fprintf(out, "%s %s\n", cli.StyleSubtle("전표번호"), cli.StyleBold(record.Voucher.VoucherID))
			return nil
		},
	}
	addDraftFlags(cmd)
	return cmd
}

func voucherListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vouchers submitted on this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			creator, _ := cmd.Flags().GetString("creator")
			since, _ := cmd.Flags().GetString("since")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := service.VoucherFilter{Creator: creator, Limit: limit}
			if since != "" {
				t, err := time.ParseInLocation(time.DateOnly, since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since date %q (want YYYY-MM-DD): %w", since, err)
				}
				filter.Since = &t
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.journal(ctx)
			if err != nil {
				return err
			}
			records, err := store.ListVouchers(ctx, filter)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("저장된 전표가 없습니다."))
				return nil
			}
			cli.RenderVoucherJournal(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().String("creator", "", "only vouchers written by this creator")
	cmd.Flags().String("since", "", "only vouchers submitted on or after this date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 50, "maximum number of vouchers")
	return cmd
}
