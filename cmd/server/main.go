package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomcast/internal/server"
)

func main() {
	log.Println("Starting roomcast server...")

	cfg := loadConfig()
	server.SetConfig(cfg)

	svc := server.NewChatService()
	mux := svc.SetupRoutes()
	httpServer := server.CreateServer(cfg.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("Received signal %v; shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("Shutdown did not complete cleanly: %v", err)
	}
}

// loadConfig reads the YAML file named by CONFIG_FILE when set and falls
// back to environment variables otherwise.
func loadConfig() *server.Config {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err := server.LoadConfigFile(path)
		if err != nil {
			log.Fatalf("Failed to load config file %s: %v", path, err)
		}
		return cfg
	}
	return server.NewConfigFromEnv()
}
