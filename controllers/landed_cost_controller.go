package controllers

import (
	"fmt"

	"davie-supply/repositories"
	"davie-supply/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LandedCostController serves the allocation worksheet download for a
// confirmed receipt.
type LandedCostController struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewLandedCostController(DB *gorm.DB, log *zap.Logger) *LandedCostController {
	return &LandedCostController{DB: DB, Log: log}
}

// ExportAllocation writes the receipt's allocation worksheet as an xlsx file:
// one row per line with quantities, the landed cost share, and the batch
// parameters in a header block.
func (c *LandedCostController) ExportAllocation(ctx *fiber.Ctx) error {
	receiptID, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	repo := repositories.NewReceivingRepository(c.DB)
	snapshot, err := repo.GetSnapshot(receiptID)
	if err != nil {
		return transitionError(ctx, err)
	}

	if snapshot.LandedCostBatch == nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Receipt has no landed cost batch yet",
		})
	}

	batch := snapshot.LandedCostBatch

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Allocation"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "Receipt")
	f.SetCellValue(sheet, "B1", fmt.Sprintf("%d", snapshot.ID))
	f.SetCellValue(sheet, "A2", "Method")
	f.SetCellValue(sheet, "B2", batch.Method)
	f.SetCellValue(sheet, "A3", "Total cost (native)")
	f.SetCellValue(sheet, "B3", batch.TotalCostNative.String())
	f.SetCellValue(sheet, "C3", batch.NativeCurrency)
	f.SetCellValue(sheet, "A4", "CZK rate")
	f.SetCellValue(sheet, "B4", batch.CzkRate.String())
	f.SetCellValue(sheet, "A5", "Total cost (CZK)")
	f.SetCellValue(sheet, "B5", batch.TotalCostCzk.String())

	headers := []string{"SKU", "Name", "Expected", "Received", "Damaged", "Good", "Landed cost share (CZK)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		f.SetCellValue(sheet, cell, h)
	}

	sum := decimal.Zero
	for i, line := range snapshot.Lines {
		row := 8 + i
		good := services.AllocationLine{ReceivedQty: line.ReceivedQty, DamagedQty: line.DamagedQty}.GoodQty()
		share := decimal.Zero
		if line.LandedCostShare != nil {
			share = *line.LandedCostShare
		}
		sum = sum.Add(share)

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.SkuCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.ExpectedQty)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.ReceivedQty)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.DamagedQty)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), good)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), share.String())
	}

	sumRow := 8 + len(snapshot.Lines)
	f.SetCellValue(sheet, fmt.Sprintf("F%d", sumRow), "Sum")
	f.SetCellValue(sheet, fmt.Sprintf("G%d", sumRow), sum.String())

	buf, err := f.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to build worksheet",
			"error":   err.Error(),
		})
	}

	filename := fmt.Sprintf("allocation_%d.xlsx", snapshot.ID)
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return ctx.Send(buf.Bytes())
}
