package main

import (
	"fmt"
	"time"

	"tfms/internal/handler"
	"tfms/internal/model"

	"github.com/spf13/cobra"
)

// tokenCmd 开发和联调时签发令牌，生产环境由身份服务签发
var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue a signed access token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		roleFlag, _ := cmd.Flags().GetString("role")
		fullName, _ := cmd.Flags().GetString("full-name")
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		role := model.ParseRole(roleFlag)
		if role == "" {
			return fmt.Errorf("未知角色: %s", roleFlag)
		}
		p := &model.Principal{Username: args[0], Role: role, FullName: fullName, Email: email}
		token, err := handler.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(p, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", "CUSTOMER", "CUSTOMER, OFFICER 或 RISK")
	tokenCmd.Flags().String("full-name", "", "全名，用于受益人匹配")
	tokenCmd.Flags().String("email", "", "邮箱，用于受益人匹配")
	tokenCmd.Flags().Duration("ttl", 12*time.Hour, "有效期")
	rootCmd.AddCommand(tokenCmd)
}
