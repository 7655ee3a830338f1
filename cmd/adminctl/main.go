// cmd/adminctl/main.go
//
// adminctl はサーバーAPIを internal/client のリソースエンジン経由で操作する
// 管理用CLIです。ログイン状態とテナント選択はセッションファイルに保持されます。
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go_saas_scaffold/internal/client"
)

var (
	baseURL string
	page    int
	pageSz  int
	search  string
	order   string
	status  string
)

// leadResource はリードの宣言的な記述子です。列・フィールド・権限キーを
// ここに書くだけで一覧・詳細・作成・削除が動きます。
var leadResource = client.ResourceConfig{
	Name:       "リード",
	PluralName: "leads",
	Endpoint:   "/api/v1/leads",
	Fields: []client.FieldConfig{
		{Name: "name", Label: "名前", Kind: client.FieldText, Required: true, Validation: "min=1,max=255"},
		{Name: "email", Label: "メールアドレス", Kind: client.FieldEmail, Required: true, Validation: "email"},
		{Name: "phone", Label: "電話番号", Kind: client.FieldText, Validation: "max=20"},
		{Name: "client_company", Label: "顧客企業", Kind: client.FieldText, Validation: "max=255"},
		{Name: "status", Label: "ステータス", Kind: client.FieldSelect, Validation: "oneof=new contacted qualified converted lost",
			Options: []client.SelectOption{
				{Value: "new", Label: "新規"},
				{Value: "contacted", Label: "連絡済み"},
				{Value: "qualified", Label: "有望"},
				{Value: "converted", Label: "成約"},
				{Value: "lost", Label: "失注"},
			}},
		{Name: "notes", Label: "メモ", Kind: client.FieldTextarea},
		{Name: "source", Label: "流入元", Kind: client.FieldText, Validation: "max=100"},
	},
	Columns: []client.ColumnConfig{
		{Name: "lead_id", Label: "ID"},
		{Name: "name", Label: "名前"},
		{Name: "email", Label: "メールアドレス"},
		{Name: "status", Label: "ステータス"},
		{Name: "created_at", Label: "作成日時"},
	},
	Permissions: client.PermissionKeys{
		Create: "leads.add",
		View:   "leads.view",
		Update: "leads.change",
		Delete: "leads.delete",
	},
	SearchFields:    []string{"name", "email", "client_company"},
	OrderingFields:  []string{"name", "email", "status", "created_at"},
	DefaultOrdering: "-created_at",
	PageSize:        25,
}

func newSession() (client.SessionStore, error) {
	path, err := client.DefaultSessionPath("adminctl")
	if err != nil {
		return nil, err
	}
	return client.NewFileSessionStore(path), nil
}

func newClient(session client.SessionStore) *client.APIClient {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return client.NewAPIClient(baseURL, session, logger, client.WithTimeout(30*time.Second))
}

// currentUser はログインレスポンスに含まれたユーザー情報をセッションと同じ
// ディレクトリに持たず、サーバーに問い合わせて都度取得します。
func currentUser(ctx context.Context, c *client.APIClient) (*client.CurrentUser, error) {
	var me struct {
		IsSuperuser bool     `json:"is_superuser"`
		Permissions []string `json:"permissions"`
	}
	if err := c.Get(ctx, "/api/v1/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &client.CurrentUser{IsSuperuser: me.IsSuperuser, Permissions: me.Permissions}, nil
}

func newLeadEngine(ctx context.Context) (*client.ResourceEngine, error) {
	session, err := newSession()
	if err != nil {
		return nil, err
	}
	c := newClient(session)
	user, err := currentUser(ctx, c)
	if err != nil {
		return nil, err
	}
	return client.NewResourceEngine(leadResource, c, user), nil
}

func confirmOnTerminal(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "adminctl",
		Short:         "マルチテナントSaaS管理CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", envOr("ADMINCTL_BASE_URL", "http://localhost:8080"), "APIのベースURL")

	rootCmd.AddCommand(loginCmd(), logoutCmd(), useCompanyCmd(), leadsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "メールアドレスとパスワードでログインします",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			c := newClient(session)

			var resp struct {
				AccessToken string `json:"access_token"`
				User        struct {
					Email string `json:"email"`
				} `json:"user"`
			}
			body := map[string]string{"email": email, "password": password}
			if err := c.Post(cmd.Context(), "/api/v1/auth/login", body, &resp); err != nil {
				return err
			}
			if err := session.SetToken(resp.AccessToken); err != nil {
				return err
			}
			fmt.Printf("ログインしました: %s\n", resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "メールアドレス")
	cmd.Flags().StringVar(&password, "password", "", "パスワード")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "ローカルのセッションを破棄します",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			if err := session.Clear(); err != nil {
				return err
			}
			fmt.Println("ログアウトしました。")
			return nil
		},
	}
}

func useCompanyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-company [slug]",
		Short: "操作対象のテナントを切り替えます",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			if err := session.SetCompanySlug(args[0]); err != nil {
				return err
			}
			fmt.Printf("テナントを切り替えました: %s\n", args[0])
			return nil
		},
	}
}

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "リードを操作します",
	}
	cmd.AddCommand(leadsListCmd(), leadsGetCmd(), leadsCreateCmd(), leadsDeleteCmd())
	return cmd
}

func leadsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "リードの一覧を表示します",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newLeadEngine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Table.SetPageSize(pageSz)
			engine.Table.SetPage(page)
			if search != "" {
				engine.Table.SetSearch(search)
			}
			if order != "" {
				engine.Table.SetOrdering(order)
			}
			if status != "" {
				engine.Table.SetFilter("status", status)
			}
			if err := engine.Table.Fetch(cmd.Context()); err != nil {
				return err
			}
			return client.RenderList(os.Stdout, engine)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "ページ番号")
	cmd.Flags().IntVar(&pageSz, "page-size", 25, "1ページあたりの件数")
	cmd.Flags().StringVar(&search, "search", "", "検索語")
	cmd.Flags().StringVar(&order, "ordering", "", "並び替えキー（-で降順）")
	cmd.Flags().StringVar(&status, "status", "", "ステータスで絞り込み")
	return cmd
}

func leadsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "リードの詳細を表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newLeadEngine(cmd.Context())
			if err != nil {
				return err
			}
			item, err := engine.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return client.RenderDetail(os.Stdout, engine, item)
		},
	}
}

func leadsCreateCmd() *cobra.Command {
	var name, email, phone, company, leadStatus, notes, source string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "リードを作成します",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newLeadEngine(cmd.Context())
			if err != nil {
				return err
			}
			values := map[string]any{
				"name":  name,
				"email": email,
			}
			if phone != "" {
				values["phone"] = phone
			}
			if company != "" {
				values["client_company"] = company
			}
			if leadStatus != "" {
				values["status"] = leadStatus
			}
			if notes != "" {
				values["notes"] = notes
			}
			if source != "" {
				values["source"] = source
			}
			created, err := engine.Create(cmd.Context(), values)
			if err != nil {
				return err
			}
			fmt.Printf("リードを作成しました: %v\n", created["lead_id"])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "名前")
	cmd.Flags().StringVar(&email, "email", "", "メールアドレス")
	cmd.Flags().StringVar(&phone, "phone", "", "電話番号")
	cmd.Flags().StringVar(&company, "client-company", "", "顧客企業")
	cmd.Flags().StringVar(&leadStatus, "status", "", "ステータス")
	cmd.Flags().StringVar(&notes, "notes", "", "メモ")
	cmd.Flags().StringVar(&source, "source", "", "流入元")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func leadsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "リードを削除します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newLeadEngine(cmd.Context())
			if err != nil {
				return err
			}
			if !yes && !confirmOnTerminal("リード "+args[0]+" を削除します。よろしいですか?") {
				fmt.Println("中止しました。")
				return nil
			}
			if err := engine.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("削除しました。")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "確認をスキップします")
	return cmd
}
