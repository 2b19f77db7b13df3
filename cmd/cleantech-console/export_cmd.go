package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	commonlogger "cleantech-console/common/logger"
	"cleantech-console/internal/backend"
	"cleantech-console/internal/config"
	"cleantech-console/internal/export"
	"cleantech-console/internal/listing"
	"cleantech-console/internal/service"
	"cleantech-console/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type exportOptions struct {
	screen   string
	format   string
	scope    string
	search   string
	trash    bool
	userName string
	password string
	output   string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a list screen from the backend into a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("CONSOLE_PASSWORD")
			}
			return runExport(cmd.Context(), config.Load(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.screen, "screen", "", "Screen name, e.g. devices (required)")
	cmd.Flags().StringVar(&opts.format, "format", "xlsx", "xlsx, pdf or print")
	cmd.Flags().StringVar(&opts.scope, "scope", "all", "page or all")
	cmd.Flags().StringVar(&opts.search, "search", "", "Search term")
	cmd.Flags().BoolVar(&opts.trash, "trash", false, "Export soft-deleted rows")
	cmd.Flags().StringVar(&opts.userName, "user", "", "Backend user name (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Backend password (default $CONSOLE_PASSWORD)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (default <screen>-<time>.<ext>)")
	_ = cmd.MarkFlagRequired("screen")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, opts exportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return withCode(exitUsage, err)
	}
	scope, err := service.ParseScope(opts.scope)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if scope == service.ScopeSelection {
		return withCode(exitUsage, fmt.Errorf("--scope selection needs an interactive session"))
	}
	def, err := service.DefaultRegistry().Get(opts.screen)
	if err != nil {
		return withCode(exitUsage, err)
	}

	logger, err := commonlogger.NewLogger(cfg.Log.Level, "console", "cleantech-console")
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer logger.Sync()

	client := backend.NewClient(backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		RetryCount: cfg.Backend.RetryCount,
	}, logger)

	login, err := client.Login(ctx, backend.LoginForm{UserName: opts.userName, Password: opts.password})
	if err != nil {
		return withCode(exitBackend, fmt.Errorf("login: %w", err))
	}
	ctx = session.WithSession(ctx, session.Session{
		UserID:   login.UserID,
		UserName: login.UserName,
		Role:     login.Role,
		Token:    login.Token,
	})

	s := def.Open(client, listing.MaxPageSize, logger)
	s.RestoreState(listing.State{Page: 1, PageSize: listing.MaxPageSize, Search: opts.search, Trash: opts.trash})
	if err := s.Load(ctx); err != nil {
		return withCode(exitBackend, err)
	}
	tbl, err := s.Export(ctx, scope)
	if err != nil {
		return withCode(exitBackend, err)
	}
	data, err := export.Render(format, tbl)
	if err != nil {
		return withCode(exitIO, err)
	}

	out := opts.output
	if out == "" {
		out = fmt.Sprintf("%s-%s.%s", def.Name(), time.Now().Format("20060102-150405"), format.Extension())
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return withCode(exitIO, err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return withCode(exitIO, err)
	}
	logger.Info("export written",
		zap.String("screen", def.Name()),
		zap.String("file", out),
		zap.Int("rows", len(tbl.Rows)),
	)
	return nil
}
