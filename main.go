package main

//go:generate swag init

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/satheeshds/roomrent/cmd"
	_ "github.com/satheeshds/roomrent/docs"
)

// @title           Room Rental API
// @version         1.0.0
// @description     Back-office API for rooms, tenants, monthly invoices, payments and reports.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cmd.Execute()
}
