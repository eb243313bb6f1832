package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"minefield/common/config"
	"minefield/common/log"
	"minefield/internal/metrics"
	"minefield/internal/rules"
	"minefield/internal/server"
	"minefield/internal/store"
	"minefield/internal/transport/ws"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "minefieldd",
	Short: "minefieldd runs the two-player riichi mahjong match server",
	Run:   runServe,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "resource/application.yml", "config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	config.InitConfig(configFile)
	log.Init(config.Conf.AppName, config.Conf.Log.Level)
	log.Info("loaded config: %+v", config.Conf)

	if err := rules.EnableWaitCache(1<<28, 10*time.Minute); err != nil {
		log.Warn("wait cache disabled: %v", err)
	}

	st, err := openStore(config.Conf.Store)
	if err != nil {
		log.Fatal("opening store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.New(ctx, st, config.Conf.Room)
	if err != nil {
		log.Fatal("starting server: %v", err)
	}

	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", config.Conf.MetricPort)
		log.Info("serving statsviz dashboard at http://localhost:%d/debug/statsviz/", config.Conf.MetricPort)
		if err := metrics.Serve(ctx, addr); err != nil {
			log.Error("metrics server stopped: %v", err)
		}
	}()

	monitor := metrics.NewMonitor(srv.Stats, 10*time.Second)
	go monitor.Run(ctx)

	go beatLoop(ctx, srv)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.Serve(w, r, srv)
	})
	httpSrv := &http.Server{Addr: fmt.Sprintf("0.0.0.0:%d", config.Conf.WsPort), Handler: mux}

	go func() {
		log.Info("listening for players on :%d", config.Conf.WsPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("websocket listener failed: %v", err)
		}
	}()

	waitForShutdown()
	log.Info("shutting down")
	cancel()
	httpSrv.Close()
	srv.Shutdown(context.Background())
}

func openStore(conf config.StoreConf) (store.Store, error) {
	switch conf.Backend {
	case "mongo":
		return store.OpenMongo(context.Background(), conf.Mongo)
	default:
		return store.OpenBolt(conf.Bolt.Path)
	}
}

func beatLoop(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.Beat(ctx)
		}
	}
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
