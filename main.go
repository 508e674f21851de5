package main

import (
	"log"

	"davie-supply/config"
	"davie-supply/controllers/idgen"
	"davie-supply/database"
	"davie-supply/middleware"
	"davie-supply/migration"
	"davie-supply/routes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {

	config.LoadConfig()

	logger := config.MustLogger(config.NewLogger())
	defer logger.Sync()

	db, err := database.OpenConnection()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migration.Migrate(db); err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	idgen.Init()
	database.RunSeeders(db)

	app := fiber.New()

	config.SetupCORS(app)
	app.Use(middleware.RequestLogger(logger))

	routes.SetupReceivingRoutes(app, db, logger)

	logger.Info("server starting", zap.String("port", config.APP_PORT))

	if err := app.Listen(":" + config.APP_PORT); err != nil {
		log.Fatal(err)
	}
}
