package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidwright/internal/adapters/driving/web"
	"github.com/custodia-labs/bidwright/internal/core/domain"
)

var (
	serveAddr          string
	serveSecureCookies bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the web interface: upload an RFP, watch the four agents run and
download the response.

The listen address, access password, session lifetime and upload limit
come from the configuration (see 'bidwright config show'). Prometheus
metrics are served on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVar(&serveSecureCookies, "secure-cookies", false, "mark cookies Secure when served over HTTPS")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop, err := startPipeline(ctx)
	if err != nil {
		return err
	}
	defer stop()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	server, cfg, err := newWebServer(settings)
	if err != nil {
		return err
	}

	cmd.Printf("bidwright listening on %s\n", cfg.Addr)
	if cfg.AccessPassword != "" {
		cmd.Println("Access password required.")
	}
	return server.Run(ctx)
}

// newWebServer builds the web server from settings and the wired services.
func newWebServer(settings *domain.AppSettings) (*web.Server, web.Config, error) {
	cfg := web.Config{
		Addr:           settings.Server.Addr,
		AccessPassword: settings.Server.AccessPassword,
		SessionTTL:     settings.Server.SessionTTL,
		MaxUploadMB:    settings.Server.MaxUploadMB,
		SecureCookies:  serveSecureCookies,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	metrics := stageMetrics
	if metrics == nil {
		metrics = web.NewMetrics()
	}
	server, err := web.NewServer(&web.Ports{
		Pipeline:   pipelineService,
		Export:     exportService,
		Extensions: extensions,
	}, cfg, metrics)
	if err != nil {
		return nil, cfg, fmt.Errorf("creating web server: %w", err)
	}
	return server, cfg, nil
}
