package main

import (
	"log"

	"github.com/chisomudeze/marketa/config"
	"github.com/chisomudeze/marketa/db"
	"github.com/chisomudeze/marketa/server"
	"github.com/chisomudeze/marketa/services"
	"github.com/chisomudeze/marketa/ws"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	authRepo := db.NewAuthRepo(gormDB)
	itemRepo := db.NewItemRepo(gormDB)
	messageRepo := db.NewMessageRepo(gormDB)

	hub := ws.NewHub()

	authService := services.NewAuthService(authRepo, conf)
	messageService := services.NewMessageService(messageRepo, authRepo, itemRepo, hub, conf)

	s := &server.Server{
		Config:            conf,
		AuthRepository:    authRepo,
		ItemRepository:    itemRepo,
		MessageRepository: messageRepo,
		AuthService:       authService,
		MessageService:    messageService,
		Hub:               hub,
	}

	s.Start()
}
