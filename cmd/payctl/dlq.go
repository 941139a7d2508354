package main

import (
	"encoding/json"
	"fmt"

	"payhub/internal/config"
	"payhub/internal/infra"
	"payhub/internal/worker"

	"github.com/spf13/cobra"
)

func dlqCmd() *cobra.Command {
	var (
		limit  int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead letter queues of the background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rdb, err := infra.NewRedis(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer rdb.Close()

			out := cmd.OutOrStdout()
			for _, queue := range []string{worker.QueueReceipts, worker.QueueNotify} {
				n, err := worker.DLQLength(cmd.Context(), rdb, queue)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s%s: %d\n", worker.DLQPrefix, queue, n)
				if n == 0 || limit <= 0 {
					continue
				}
				entries, err := worker.DLQPeek(cmd.Context(), rdb, queue, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if asJSON {
						b, _ := json.Marshal(e)
						fmt.Fprintln(out, string(b))
						continue
					}
					fmt.Fprintf(out, "  %s %s %s: %s\n", e.FailedAt, e.JobType, e.Payload, e.Reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 10, "entries to show per queue")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print entries as JSON")
	return cmd
}
