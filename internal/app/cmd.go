package app

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRootCommand はblogmanのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blogman",
		Short: "ブログ投稿APIサーバー",
		Long: `blogman は投稿・いいね・コメントを扱うブログ用のJSON APIサーバー。

設定は環境変数（カレントディレクトリの.envを含む）から読み込む。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), w)
		},
	}

	rootCmd.AddCommand(serveCmd(w))
	rootCmd.AddCommand(migrateCmd(w))
	rootCmd.AddCommand(cleanupCmd(w))
	rootCmd.AddCommand(healthcheckCmd())

	return rootCmd
}

func serveCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), w)
		},
	}
}

func migrateCmd(w io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "データベースマイグレーションを操作する",
		Long:  "サブコマンドを省略した場合は未適用のマイグレーションをすべて適用する。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(w)
		},
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "未適用のマイグレーションをすべて適用する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(w)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "マイグレーションを指定ステップ数だけ戻す",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return runMigrateDown(w, steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "戻すマイグレーションの数")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "現在のマイグレーションバージョンを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateVersion(w, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}

func cleanupCmd(w io.Writer) *cobra.Command {
	var graceHours int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "期限切れセッションを1回削除する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if graceHours < 0 {
				return fmt.Errorf("--grace-hours must not be negative, got %d", graceHours)
			}
			return runCleanup(cmd.Context(), w, graceHours)
		},
	}
	cmd.Flags().IntVar(&graceHours, "grace-hours", 24, "期限切れ後に保持する時間")
	return cmd
}

// healthcheckCmd はdistroless環境でのDockerヘルスチェック用サブコマンド。
// 設定の読み込みを行わないため、DATABASE_URLが未設定でも動作する。
func healthcheckCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "起動中のサーバーの/healthを確認する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), strconv.Itoa(port))
		},
	}
	cmd.Flags().IntVar(&port, "port", defaultHealthcheckPort(), "確認するサーバーのポート")
	return cmd
}

func defaultHealthcheckPort() int {
	if p, err := strconv.Atoi(os.Getenv("SERVER_PORT")); err == nil && p > 0 {
		return p
	}
	return 8080
}
