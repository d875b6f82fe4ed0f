package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chisomudeze/marketa/config"
	"github.com/chisomudeze/marketa/db"
	"github.com/chisomudeze/marketa/services"
	"github.com/chisomudeze/marketa/ws"
)

type Server struct {
	Config            *config.Config
	AuthRepository    db.AuthRepository
	ItemRepository    db.ItemRepository
	MessageRepository db.MessageRepository
	AuthService       services.AuthService
	MessageService    services.MessageService
	Hub               *ws.Hub
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() {
	r := s.setupRouter()

	port := s.Config.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Printf("Server started on :%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
