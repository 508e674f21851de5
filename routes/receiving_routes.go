package routes

import (
	"davie-supply/config"
	"davie-supply/controllers"
	"davie-supply/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func SetupReceivingRoutes(app *fiber.App, db *gorm.DB, log *zap.Logger) {

	receivingController := controllers.NewReceivingController(db, log)
	landedCostController := controllers.NewLandedCostController(db, log)

	api := app.Group(config.MAIN_ROUTES+"/receiving", middleware.UserContext)

	api.Get("/search", receivingController.SearchPurchases)

	api.Post("/receipts", receivingController.StartReceipt)
	api.Get("/receipts", receivingController.GetReceipts)
	api.Get("/receipts/:id", receivingController.GetReceipt)
	api.Post("/receipts/:id/scan", receivingController.ScanCode)
	api.Patch("/receipts/:id/lines/:line_id", receivingController.UpdateLine)
	api.Post("/receipts/:id/submit", receivingController.SubmitReceipt)
	api.Post("/receipts/:id/confirm", receivingController.ConfirmReceipt)
	api.Post("/receipts/:id/post", receivingController.PostReceipt)
	api.Post("/receipts/:id/cancel", receivingController.CancelReceipt)
	api.Get("/receipts/:id/allocation-export", landedCostController.ExportAllocation)
}
