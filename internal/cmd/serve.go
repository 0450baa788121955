package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gtoverlay/internal/catalog/sqlitecatalog"
	"github.com/MeKo-Tech/gtoverlay/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the /gt/* overlay, analytics, and tile endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("serve.addr", "addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	catalogPath := viper.GetString("catalog")
	if catalogPath == "" {
		return fmt.Errorf("--catalog is required")
	}

	store, err := sqlitecatalog.Open(catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	api := &httpapi.Server{Catalog: store, Logger: logger}

	logger.Info("gtoverlay listening", "addr", addr, "catalog", catalogPath)

	srv := &http.Server{Addr: addr, Handler: api.Router(), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}
