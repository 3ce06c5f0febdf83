package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thereceipt/label-engine/internal/api"
	"github.com/thereceipt/label-engine/internal/command"
	"github.com/thereceipt/label-engine/internal/config"
	"github.com/thereceipt/label-engine/internal/fonts"
	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/metrics"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/internal/tui"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	var cfgFile string
	loader := config.NewLoader()

	rootCmd := &cobra.Command{
		Use:     "label-engine",
		Short:   "Barcode label server for thermal printers",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, loader.ConfigFileUsed())
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is search in ., ~/.config/label-engine, /etc/label-engine)")
	flags.Int("port", 12212, "HTTP API port")
	flags.Bool("headless", false, "run without the terminal dashboard")

	v := loader.Viper()
	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("server.headless", flags.Lookup("headless"))
	_ = v.BindEnv("server.port", config.EnvPrefix+"_SERVER_PORT", "SERVER_PORT")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cfgUsed string) error {
	if cfgUsed != "" {
		log.Printf("📄 Using config %s", cfgUsed)
	}

	items, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open item store: %w", err)
	}
	defer items.Close()

	fixed, err := items.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate item codes: %w", err)
	}
	if fixed > 0 {
		log.Printf("🔧 Repaired %d stored barcode(s)", fixed)
	}

	face := loadFont(cfg.Label.Font)
	m := metrics.New(nil)
	r := renderer.New(
		renderer.WithFont(face),
		renderer.WithObserver(m),
		renderer.WithDefaultBrand(cfg.Label.Brand),
		renderer.WithSupersample(cfg.Renderer.Supersample),
	)

	manager, err := printer.NewManager(registryPath(cfg.Printer.Registry), cfg.Printer.Protocol)
	if err != nil {
		return fmt.Errorf("failed to create printer manager: %w", err)
	}
	for _, addr := range cfg.Printer.Network {
		host, port, err := splitHostPort(addr)
		if err != nil {
			log.Printf("⚠️  Skipping network printer %q: %v", addr, err)
			continue
		}
		manager.AddNetworkPrinter(host, port, "")
	}

	printers, err := manager.DetectPrinters()
	if err != nil {
		log.Printf("⚠️  Printer detection failed: %v", err)
	}

	pool := printer.NewConnectionPool()
	defer pool.DisconnectAll()

	queue := printer.NewPrintQueue(pool, manager, cfg.Printer.MaxRetries)
	defer queue.Stop()

	svc := labels.NewService(labels.Config{
		Renderer:    r,
		Items:       items,
		Queue:       queue,
		Printers:    manager,
		DefaultSpec: cfg.Label.Spec,
		Workers:     cfg.Renderer.Workers,
	})
	executor := command.NewExecutor(manager, queue, items, svc)

	server := api.NewServer(api.Deps{
		Manager:  manager,
		Queue:    queue,
		Items:    items,
		Labels:   svc,
		Executor: executor,
		Metrics:  m,
	})

	queue.OnUpdate(func(job printer.PrintJob) {
		m.JobUpdated(job)
		server.BroadcastJobUpdate(job)
	})

	var dash *tui.TViewApp
	if !cfg.Server.Headless {
		dash = tui.NewTViewApp(tui.Deps{
			Manager:  manager,
			Queue:    queue,
			Items:    items,
			Labels:   svc,
			Executor: executor,
			Port:     cfg.Server.Port,
			Spec:     cfg.Label.Spec,
		})
		log.SetOutput(io.MultiWriter(os.Stderr, dash.LogWriter()))
	}

	manager.OnPrinterAdded(func(p *printer.Printer) {
		log.Printf("🟢 Printer connected: %s", p.DisplayName())
		server.BroadcastPrinterAdded(p)
		if dash != nil {
			dash.RefreshPrinters()
		}
	})
	manager.OnPrinterRemoved(func(id string) {
		log.Printf("🔴 Printer disconnected: %s", id)
		pool.Disconnect(id)
		server.BroadcastPrinterRemoved(id)
		if dash != nil {
			dash.RefreshPrinters()
		}
	})

	monitor := printer.NewMonitor(manager, cfg.Printer.MonitorInterval)
	monitor.Start()
	defer monitor.Stop()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.Server.Port)),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting API server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Printf("🏷️  Label Engine %s starting (preset %s, font %s)", Version, cfg.Label.Spec, face.Name())
	if len(printers) > 0 {
		log.Printf("✅ Found %d printer(s)", len(printers))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	uiDone := make(chan struct{})
	if dash != nil {
		go func() {
			if err := dash.Run(runCtx); err != nil {
				log.Printf("❌ TUI error: %v", err)
			}
			close(uiDone)
		}()
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Printf("🛑 Shutting down...")
	case <-uiDone:
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown: %v", err)
	}
	return nil
}

func loadFont(path string) *fonts.Handle {
	if path == "" {
		return fonts.Discover()
	}
	h, err := fonts.Load(path)
	if err != nil {
		log.Printf("⚠️  Font %s unavailable, searching system fonts: %v", path, err)
		return fonts.Discover()
	}
	return h
}

// splitHostPort accepts "host" or "host:port"; the port defaults to 9100
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, printer.DefaultNetworkPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// registryPath resolves a relative registry file name. It tries to place it
// next to the executable, then the current directory, then the user config dir.
func registryPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if info, err := os.Stat(exeDir); err == nil && info.IsDir() {
			// Probe write permission with a throwaway file
			testFile := filepath.Join(exeDir, ".label-engine-write-test")
			if f, err := os.Create(testFile); err == nil {
				f.Close()
				os.Remove(testFile)
				return filepath.Join(exeDir, name)
			}
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "label-engine")
		} else {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "label-engine")
		}
	} else if home := os.Getenv("HOME"); home != "" {
		configDir = filepath.Join(home, ".config", "label-engine")
	}

	if configDir != "" {
		os.MkdirAll(configDir, 0755)
		return filepath.Join(configDir, name)
	}
	return name
}
