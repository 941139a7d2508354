package main

import (
	"fmt"
	"text/tabwriter"

	"payhub/internal/infra"
	"payhub/internal/repository"
	"payhub/internal/service"
	"payhub/internal/worker"

	"github.com/spf13/cobra"
)

var recomputeActor int64

func recomputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute [certificate-code]",
		Short: "Re-derive a certificate's settlement status from its transactions",
		Long: `Recompute reconciles the active transactions of a certificate and writes
a new status row when the classification changed. A certificate that becomes
fully paid gets its settlement notification queued as usual.

Examples:
  payctl recompute 8f1c2a9e
  payctl recompute 8f1c2a9e --actor 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			rdb, err := infra.NewRedis(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer rdb.Close()

			settlement := service.NewSettlementService(
				db,
				repository.NewTransactionRepository(db),
				repository.NewCertificateRepository(db),
				repository.NewStatusRepository(db),
				repository.NewWebhookEventRepository(db),
				service.NewAttributionService(repository.NewAttributionRepository(db), cfg.Merchants, cfg.DefaultMerchant),
				cfg.Commissions(),
				worker.NewDispatcher(rdb),
			)

			res, err := settlement.Recompute(cmd.Context(), args[0], recomputeActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (changed=%t last_pay=%t)\n",
				res.CertificateCode, res.Status, res.Changed, res.LastPay)
			return nil
		},
	}
	cmd.Flags().Int64Var(&recomputeActor, "actor", 0, "user id recorded on the status row")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [certificate-code]",
		Short: "Show the reconciled amounts and status history of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			certificates := service.NewCertificateService(
				repository.NewCertificateRepository(db),
				repository.NewStatusRepository(db),
				repository.NewTransactionRepository(db),
			)

			summary, err := certificates.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			history, err := certificates.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "certificate %s (No. %d)\n", summary.CertificateCode, summary.CertificateNum)
			fmt.Fprintf(out, "  billed      %s\n", summary.Billing.StringFixed(2))
			fmt.Fprintf(out, "  closed      %s\n", summary.Closed.StringFixed(2))
			fmt.Fprintf(out, "  identified  %s\n", summary.Identified.StringFixed(2))
			fmt.Fprintf(out, "  prepayment  %s\n\n", summary.Prepayment.StringFixed(2))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tFROM\tTO\tUSER")
			for _, h := range history {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", h.Status, h.DateStart, h.DateEnd, h.UserID)
			}
			return w.Flush()
		},
	}
}
