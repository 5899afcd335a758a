package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"paycontrol/config"
	"paycontrol/control"
	"paycontrol/handlers"
	"paycontrol/services"
	"paycontrol/templates"
	"paycontrol/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		dataDir  string
		port     string
		logLevel string
	)

	load := func() (templates.AppConfig, error) {
		utils.Setup(os.Stderr, logLevel)
		if err := config.Load(dataDir); err != nil {
			return templates.AppConfig{}, err
		}
		cfg := config.Config
		if port != "" {
			cfg.Port = port
		}
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the payment control",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(config.Masked(cfg))
		},
	}
	configCmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	configCmd.AddCommand(show)

	root := &cobra.Command{
		Use:          "paycontrol",
		Short:        "Drop-in payment control server",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "directory holding config.json")
	root.PersistentFlags().StringVar(&port, "port", "", "listen port (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	root.AddCommand(serve, configCmd)
	return root
}

func runServe(ctx context.Context, cfg templates.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	useTLS := shouldUseHTTPS(cfg.PublicURL)
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("https://localhost:%s", cfg.Port)
	}

	snapshot := cfg.Snapshot()
	if snapshot.CheckoutURL == nil {
		// Use the built-in merchant endpoint.
		snapshot.CheckoutURL = control.String(strings.TrimRight(cfg.PublicURL, "/") + "/checkout")
	}

	events := services.NewSSEBroadcaster()
	bridge := services.NewBrowserDropin(events, cfg.WidgetTimeout())

	var ctrl *control.Control
	ctrl, err := control.New(control.Options{
		Dropin:                           bridge,
		Checkout:                         newCheckoutClient(useTLS, cfg),
		Surface:                          handlers.ViewSurface(events),
		Notify:                           handlers.OutputsNotifier(events, func() control.Outputs { return ctrl.GetOutputs() }),
		InitDelay:                        cfg.InitDelay(),
		ForceErrorOnPaymentMethodFailure: cfg.ForceErrorOnFailure,
	})
	if err != nil {
		return fmt.Errorf("create control: %w", err)
	}
	defer ctrl.Destroy()

	change := ctrl.Init(snapshot)
	utils.Info("control", "Control initialised", "change", change.String(), "status", ctrl.Status().String())

	srv := &handlers.Server{
		Control:   ctrl,
		Events:    events,
		Bridge:    bridge,
		Charger:   newCharger(cfg.Merchant),
		HostToken: cfg.HostToken,
		PublicURL: cfg.PublicURL,
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if useTLS {
			// Drop-in SDKs require a secure context.
			cert, err := generateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("generate self-signed certificate: %w", err)
			}
			server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
			utils.Info("http", "Starting HTTPS server with a self-signed certificate", "url", cfg.PublicURL)
			utils.Warn("http", "You will need to accept the security warning in your browser")
			err = server.ListenAndServeTLS("", "")
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
		utils.Info("http", "Starting HTTP server behind a proxy", "port", cfg.Port, "url", cfg.PublicURL)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.Info("http", "Shutting down")
		ctrl.Destroy()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// shouldUseHTTPS serves TLS itself when no public URL is configured or the
// URL points at localhost.
func shouldUseHTTPS(publicURL string) bool {
	return publicURL == "" || isLocalURL(publicURL)
}

func isLocalURL(u string) bool {
	return strings.Contains(u, "://localhost") || strings.Contains(u, "://127.0.0.1")
}

// newCheckoutClient trusts the self-signed certificate when the control posts
// to its own endpoint on localhost.
func newCheckoutClient(selfSigned bool, cfg templates.AppConfig) *services.CheckoutClient {
	client := services.NewCheckoutClient(cfg.CheckoutTimeout())
	if selfSigned && (cfg.CheckoutURL == "" || isLocalURL(cfg.CheckoutURL)) {
		client.InsecureLocalTLS()
	}
	return client
}

func newCharger(m templates.MerchantConfig) services.Charger {
	switch m.Mode {
	case "stripe":
		utils.Info("merchant", "Reference checkout endpoint uses Stripe", "currency", m.Currency)
		return services.NewStripeCharger(m.StripeSecretKey, m.Currency)
	default:
		utils.Info("merchant", "Reference checkout endpoint runs in sandbox mode")
		return services.SandboxCharger{}
	}
}

// generateSelfSignedCert creates a self-signed certificate for localhost
func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Payment Control Development"},
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(365 * 24 * time.Hour), // 1 year
		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
	}, nil
}
