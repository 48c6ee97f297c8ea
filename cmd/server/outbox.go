package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"tfms/internal/infrastructure/database"
	"tfms/internal/repository"

	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and requeue lifecycle messages that failed delivery",
}

var outboxFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List messages that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withOutbox(cmd, func(ctx context.Context, repo *repository.OutboxRepository) error {
			messages, err := repo.Failed(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOPIC\tKEY\tRETRIES\tCREATED")
			for _, m := range messages {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", m.ID, m.Topic, m.MessageKey, m.RetryCount, m.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		})
	},
}

var outboxRequeueCmd = &cobra.Command{
	Use:   "requeue [id...]",
	Short: "Reset failed messages to pending; --all requeues every failed message",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")
		if !all && len(args) == 0 {
			return errors.New("需要指定消息 ID 或使用 --all")
		}
		return withOutbox(cmd, func(ctx context.Context, repo *repository.OutboxRepository) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if all {
				messages, err := repo.Failed(ctx, limit)
				if err != nil {
					return err
				}
				for _, m := range messages {
					ids = append(ids, m.ID)
				}
			}
			n, err := repo.Requeue(ctx, ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d message(s)\n", n)
			return nil
		})
	},
}

func init() {
	outboxFailedCmd.Flags().Int("limit", 100, "最多返回条数")
	outboxRequeueCmd.Flags().Bool("all", false, "重新投递全部失败消息")
	outboxRequeueCmd.Flags().Int("limit", 1000, "--all 时最多处理条数")
	outboxCmd.AddCommand(outboxFailedCmd, outboxRequeueCmd)
	rootCmd.AddCommand(outboxCmd)
}

func withOutbox(cmd *cobra.Command, fn func(context.Context, *repository.OutboxRepository) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errors.New("database.driver 未配置，内存模式没有 outbox")
	}
	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(cmd.Context(), repository.NewOutboxRepository(db))
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("无效的消息 ID: %s", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
