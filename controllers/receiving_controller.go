package controllers

import (
	"errors"
	"strconv"
	"time"

	"davie-supply/config"
	"davie-supply/models"
	"davie-supply/repositories"
	"davie-supply/services"
	"davie-supply/types"
	"davie-supply/utils"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReceivingController handles the delivery receipt lifecycle: start, scan,
// line corrections, submit, confirm (landed-cost allocation), post, cancel.
type ReceivingController struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewReceivingController(DB *gorm.DB, log *zap.Logger) *ReceivingController {
	return &ReceivingController{DB: DB, Log: log}
}

var validate = validator.New()

type StartReceiptPayload struct {
	ImportPurchaseId types.SnowflakeID `json:"import_purchase_id" validate:"required"`
	Carrier          string            `json:"carrier" validate:"required"`
	ClaimedParcels   int               `json:"claimed_parcels" validate:"min=0"`
	ClaimedCartons   int               `json:"claimed_cartons" validate:"min=0"`
	DockCode         string            `json:"dock_code"`
}

type ScanPayload struct {
	Code string `json:"code" validate:"required"`
}

type UpdateLinePayload struct {
	ReceivedQty   *int    `json:"received_qty"`
	DamagedQty    *int    `json:"damaged_qty"`
	Note          *string `json:"note"`
	ExtraLocation *string `json:"extra_location"`
}

type ConfirmReceiptPayload struct {
	Method          string          `json:"method" validate:"required"`
	TotalCostNative decimal.Decimal `json:"total_cost_native"`
	NativeCurrency  string          `json:"native_currency" validate:"required"`
	CzkRate         decimal.Decimal `json:"czk_rate"`
	Notes           string          `json:"notes"`
}

func currentUserID(ctx *fiber.Ctx) int64 {
	if v, ok := ctx.Locals("userID").(int64); ok {
		return v
	}
	return 0
}

// transitionError maps state machine and not-found failures onto the right
// HTTP status; anything else is a persistence failure.
func transitionError(ctx *fiber.Ctx, err error) error {
	var invalid *services.InvalidTransitionError
	if errors.As(err, &invalid) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": invalid.Error(),
		})
	}
	if errors.Is(err, repositories.ErrReceiptNotFound) || errors.Is(err, repositories.ErrLineNotFound) ||
		errors.Is(err, repositories.ErrPurchaseNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Database error",
		"error":   err.Error(),
	})
}

// SearchPurchases lists open import purchases a dock delivery could match.
func (c *ReceivingController) SearchPurchases(ctx *fiber.Ctx) error {
	carrier := ctx.Query("carrier")
	parcels := ctx.QueryInt("parcels", 0)

	repo := repositories.NewReceivingRepository(c.DB)
	result, err := repo.SearchCandidatePurchases(carrier, parcels)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to search purchases",
			"error":   err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": result})
}

// StartReceipt creates a draft receipt for an import purchase and seeds one
// line per purchase item. Delivery instructions for those items are returned
// read-only for the clerk.
func (c *ReceivingController) StartReceipt(ctx *fiber.Ctx) error {
	var payload StartReceiptPayload

	if err := ctx.BodyParser(&payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid payload",
			"error":   err.Error(),
		})
	}

	if err := validate.Struct(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	purchaseRepo := repositories.NewPurchaseRepository(tx)
	receivingRepo := repositories.NewReceivingRepository(tx)

	purchase, err := purchaseRepo.GetPurchaseWithItems(int64(payload.ImportPurchaseId))
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	// One open receipt per purchase at a time
	open, err := receivingRepo.FindOpenReceiptByPurchaseID(purchase.ID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}
	if open != nil {
		tx.Rollback()
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "An open receipt already exists for this purchase",
			"data":    fiber.Map{"receipt_id": types.SnowflakeID(open.ID)},
		})
	}

	receipt := models.DeliveryReceipt{
		ImportPurchaseId: purchase.ID,
		Carrier:          payload.Carrier,
		ClaimedParcels:   payload.ClaimedParcels,
		ClaimedCartons:   payload.ClaimedCartons,
		DockCode:         payload.DockCode,
		EmployeeId:       userID,
		Status:           services.StatusDraft,
		CreatedBy:        int(userID),
		UpdatedBy:        int(userID),
	}

	if err := tx.Create(&receipt).Error; err != nil {
		tx.Rollback()
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create receipt",
			"error":   err.Error(),
		})
	}

	itemIDs := make([]int64, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		itemIDs = append(itemIDs, item.ID)
	}

	lines := services.SeedReceiptLines(receipt.ID, purchase.Items, userID)
	for i := range lines {
		if err := tx.Create(&lines[i]).Error; err != nil {
			tx.Rollback()
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to seed receipt lines",
				"error":   err.Error(),
			})
		}
	}

	instructions, err := purchaseRepo.GetInstructionsForItems(itemIDs)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit receipt",
			"error":   err.Error(),
		})
	}

	c.Log.Info("receipt started",
		zap.Int64("receipt_id", receipt.ID),
		zap.Int64("import_purchase_id", purchase.ID),
		zap.Int("lines", len(lines)))

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Receipt started",
		"data": fiber.Map{
			"receipt":      receipt,
			"lines":        lines,
			"instructions": instructions,
		},
	})
}

// GetReceipts lists receipts, optionally filtered by status.
func (c *ReceivingController) GetReceipts(ctx *fiber.Ctx) error {
	status := ctx.Query("status")
	if status != "" && !services.IsValidStatus(status) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unknown status filter: " + status,
		})
	}

	repo := repositories.NewReceivingRepository(c.DB)
	result, err := repo.ListReceipts(status)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list receipts",
			"error":   err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": result})
}

// GetReceipt returns the full snapshot: receipt, lines, scans, cost batch.
func (c *ReceivingController) GetReceipt(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	repo := repositories.NewReceivingRepository(c.DB)
	snapshot, err := repo.GetSnapshot(receiptID)
	if err != nil {
		return transitionError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "data": snapshot})
}

// ScanCode records one scanned code against a draft receipt. Every scan lands
// in the audit log whatever it classifies as; PARCEL bumps the parcel scan
// counter, SKU bumps the matched line's received quantity.
func (c *ReceivingController) ScanCode(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	var payload ScanPayload
	if err := ctx.BodyParser(&payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid payload",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Scan code is required",
			"error":   err.Error(),
		})
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	scan, err := services.RecordScan(repo, receipt, payload.Code, userID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, services.ErrScanClosed) {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		return transitionError(ctx, err)
	}

	if scan.Kind == services.ScanKindOther {
		c.Log.Warn("unrecognized scan code",
			zap.Int64("receipt_id", receipt.ID),
			zap.String("code", payload.Code))
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit scan",
			"error":   err.Error(),
		})
	}

	snapshot, err := repositories.NewReceivingRepository(c.DB).GetSnapshot(receiptID)
	if err != nil {
		return transitionError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Scanned as " + scan.Kind,
		"data":    snapshot,
	})
}

// UpdateLine is the manual correction surface for exceptions: partial
// shipments, damage, over-delivery. It stays permissive; suspicious values
// are logged as warnings, never rejected.
func (c *ReceivingController) UpdateLine(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}
	lineID, err := parseIDParam(ctx, "line_id")
	if err != nil {
		return err
	}

	var payload UpdateLinePayload
	if err := ctx.BodyParser(&payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid payload",
			"error":   err.Error(),
		})
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if receipt.Status != services.StatusDraft && receipt.Status != services.StatusEmployeeSubmitted {
		tx.Rollback()
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Lines are immutable once the receipt is confirmed",
		})
	}

	line, err := repo.GetLineByID(receiptID, lineID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	updates := map[string]interface{}{"updated_by": int(userID)}
	if payload.ReceivedQty != nil {
		updates["received_qty"] = *payload.ReceivedQty
		if *payload.ReceivedQty < 0 {
			c.Log.Warn("negative received quantity on manual edit",
				zap.Int64("line_id", line.ID), zap.Int("received_qty", *payload.ReceivedQty))
		}
		if *payload.ReceivedQty > line.ExpectedQty {
			c.Log.Warn("received quantity exceeds expected",
				zap.Int64("line_id", line.ID),
				zap.Int("received_qty", *payload.ReceivedQty),
				zap.Int("expected_qty", line.ExpectedQty))
		}
	}
	if payload.DamagedQty != nil {
		updates["damaged_qty"] = *payload.DamagedQty
		if *payload.DamagedQty < 0 {
			c.Log.Warn("negative damaged quantity on manual edit",
				zap.Int64("line_id", line.ID), zap.Int("damaged_qty", *payload.DamagedQty))
		}
	}
	if payload.Note != nil {
		updates["note"] = *payload.Note
	}
	if payload.ExtraLocation != nil {
		updates["extra_location"] = *payload.ExtraLocation
	}

	if err := tx.Model(line).Updates(updates).Error; err != nil {
		tx.Rollback()
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update line",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit line update",
			"error":   err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Line updated",
		"data":    line,
	})
}

// SubmitReceipt is the clerk hand-off: draft -> employee_submitted.
func (c *ReceivingController) SubmitReceipt(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := services.CheckTransition(receipt.Status, services.StatusEmployeeSubmitted); err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	now := time.Now()
	receipt.Status = services.StatusEmployeeSubmitted
	receipt.SubmittedAt = &now
	receipt.UpdatedBy = int(userID)

	if err := tx.Save(receipt).Error; err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit submit",
			"error":   err.Error(),
		})
	}

	if config.MailEnabled && config.MailSupervisor != "" {
		go func(id int64) {
			if err := utils.SendSubmitNotification(id); err != nil {
				c.Log.Warn("supervisor notification failed",
					zap.Int64("receipt_id", id), zap.Error(err))
			}
		}(receipt.ID)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Receipt submitted",
		"data":    receipt,
	})
}

// ConfirmReceipt is the supervisor confirmation: employee_submitted ->
// founder_confirmed. It persists the landed cost batch and runs the
// allocation over all lines inside the same transaction, so a failed
// allocation rolls the status change back.
func (c *ReceivingController) ConfirmReceipt(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	var payload ConfirmReceiptPayload
	if err := ctx.BodyParser(&payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid payload",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	if !services.IsValidMethod(payload.Method) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unknown allocation method: " + payload.Method,
		})
	}
	if payload.TotalCostNative.IsNegative() || payload.CzkRate.IsNegative() {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Cost and exchange rate must not be negative",
		})
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	params := services.ConfirmParams{
		Method:          payload.Method,
		TotalCostNative: payload.TotalCostNative,
		NativeCurrency:  payload.NativeCurrency,
		CzkRate:         payload.CzkRate,
		Notes:           payload.Notes,
	}

	batch, allocation, err := services.ConfirmReceipt(repo, receipt, params, userID, time.Now())
	if err != nil {
		tx.Rollback()
		if errors.Is(err, services.ErrBatchExists) {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		return transitionError(ctx, err)
	}

	if err := tx.Save(receipt).Error; err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit confirmation",
			"error":   err.Error(),
		})
	}

	c.Log.Info("receipt confirmed",
		zap.Int64("receipt_id", receipt.ID),
		zap.String("method", payload.Method),
		zap.String("total_cost_czk", batch.TotalCostCzk.String()))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Receipt confirmed",
		"data": fiber.Map{
			"receipt":           receipt,
			"landed_cost_batch": batch,
			"allocation":        allocation,
		},
	})
}

// PostReceipt finalizes a confirmed receipt into inventory. Terminal: one
// stock movement per line with good units, then no further mutation.
func (c *ReceivingController) PostReceipt(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if receipt.Status != services.StatusFounderConfirmed {
		tx.Rollback()
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Receipt must be confirmed first",
		})
	}

	lines, err := repo.GetLinesByReceiptID(receipt.ID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	for _, line := range lines {
		goodQty := line.ReceivedQty - line.DamagedQty
		if goodQty <= 0 {
			continue
		}

		unitCost := decimal.Zero
		if line.LandedCostShare != nil {
			unitCost = line.LandedCostShare.Div(decimal.NewFromInt(int64(goodQty))).Round(4)
		}

		location := line.ExtraLocation
		if location == "" {
			location = line.PrimaryLocation
		}

		movement := models.StockMovement{
			ReceiptId:      receipt.ID,
			ReceiptLineId:  line.ID,
			PurchaseItemId: line.PurchaseItemId,
			SkuCode:        line.SkuCode,
			MovementType:   "inbound_receipt",
			Quantity:       goodQty,
			UnitLandedCost: unitCost,
			Location:       location,
			CreatedBy:      int(userID),
			UpdatedBy:      int(userID),
		}
		if err := tx.Create(&movement).Error; err != nil {
			tx.Rollback()
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to create stock movement",
				"error":   err.Error(),
			})
		}
	}

	now := time.Now()
	receipt.Status = services.StatusPostedToInventory
	receipt.PostedAt = &now
	receipt.UpdatedBy = int(userID)

	if err := tx.Save(receipt).Error; err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit posting",
			"error":   err.Error(),
		})
	}

	c.Log.Info("receipt posted to inventory", zap.Int64("receipt_id", receipt.ID))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Receipt posted to inventory",
		"data":    receipt,
	})
}

// CancelReceipt aborts an unconfirmed receipt. Terminal; the history stays.
func (c *ReceivingController) CancelReceipt(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	userID := currentUserID(ctx)

	tx := c.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repositories.NewReceivingRepository(tx)

	receipt, err := repo.GetReceiptForUpdate(receiptID)
	if err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := services.CheckTransition(receipt.Status, services.StatusCancelled); err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	now := time.Now()
	receipt.Status = services.StatusCancelled
	receipt.CancelledAt = &now
	receipt.UpdatedBy = int(userID)

	if err := tx.Save(receipt).Error; err != nil {
		tx.Rollback()
		return transitionError(ctx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to commit cancellation",
			"error":   err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Receipt cancelled",
		"data":    receipt,
	})
}

func parseIDParam(ctx *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}
	return id, nil
}
