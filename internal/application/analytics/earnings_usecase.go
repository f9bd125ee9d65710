// Package analytics contiene los reportes derivados del ledger. Se recalculan en cada
// consulta a partir de ventas y ajustes; no hay acumulados persistidos.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// EarningsUseCase ganancias por método de pago.
type EarningsUseCase struct {
	sales       repository.SaleRepository
	adjustments repository.AdjustmentRepository
}

// NewEarningsUseCase construye el caso de uso.
func NewEarningsUseCase(sales repository.SaleRepository, adjustments repository.AdjustmentRepository) *EarningsUseCase {
	return &EarningsUseCase{sales: sales, adjustments: adjustments}
}

// Earnings calcula el reporte para las ventas OK creadas en [from, to] (fechas YYYY-MM-DD, opcionales).
func (uc *EarningsUseCase) Earnings(ctx context.Context, fromStr, toStr string) (*dto.EarningsReportDTO, error) {
	from, to, err := ParsePeriod(fromStr, toStr)
	if err != nil {
		return nil, err
	}
	sales, err := uc.sales.List(ctx, repository.SaleFilter{From: from, To: to, Status: entity.SaleStatusOK})
	if err != nil {
		return nil, fmt.Errorf("listar ventas: %w", err)
	}
	ids := make([]string, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
	}
	var adjs []*entity.Adjustment
	if len(ids) > 0 {
		if adjs, err = uc.adjustments.ListBySales(ctx, ids); err != nil {
			return nil, fmt.Errorf("listar ajustes: %w", err)
		}
	}
	report := ComputeEarnings(sales, adjs)
	report.From, report.To = from, to
	return &report, nil
}

// ComputeEarnings función pura: por método, Σ subtotales de ventas OK menos
// Σ (cantidad devuelta × precio unitario de la línea original). Las ventas anuladas no cuentan.
func ComputeEarnings(sales []*entity.Sale, adjustments []*entity.Adjustment) dto.EarningsReportDTO {
	type lineRef struct {
		price  decimal.Decimal
		method string
	}
	byMethod := map[string]*dto.PayMethodEarningsDTO{}
	get := func(method string) *dto.PayMethodEarningsDTO {
		m, ok := byMethod[method]
		if !ok {
			m = &dto.PayMethodEarningsDTO{PayMethod: method, Gross: decimal.Zero, Returned: decimal.Zero}
			byMethod[method] = m
		}
		return m
	}

	lines := map[string]lineRef{}
	report := dto.EarningsReportDTO{Gross: decimal.Zero, Returned: decimal.Zero}
	for _, s := range sales {
		if s.Status != entity.SaleStatusOK {
			continue
		}
		report.Sales++
		seen := map[string]bool{}
		for _, l := range s.Lines {
			m := get(l.PayMethod)
			m.Gross = m.Gross.Add(l.Subtotal)
			if !seen[l.PayMethod] {
				m.Sales++
				seen[l.PayMethod] = true
			}
			lines[l.ID] = lineRef{price: l.UnitPrice, method: l.PayMethod}
			report.Gross = report.Gross.Add(l.Subtotal)
		}
	}

	for _, a := range adjustments {
		if a.Type != entity.AdjustmentReturn {
			continue
		}
		for _, al := range a.Lines {
			ref, ok := lines[al.SaleLineID]
			if !ok {
				continue // línea de una venta anulada o fuera del período
			}
			amount := ref.price.Mul(decimal.NewFromInt(al.Quantity))
			m := get(ref.method)
			m.Returned = m.Returned.Add(amount)
			report.Returned = report.Returned.Add(amount)
		}
	}

	report.Methods = make([]dto.PayMethodEarningsDTO, 0, len(byMethod))
	for _, m := range byMethod {
		m.Net = m.Gross.Sub(m.Returned)
		report.Methods = append(report.Methods, *m)
	}
	sort.Slice(report.Methods, func(i, j int) bool { return report.Methods[i].PayMethod < report.Methods[j].PayMethod })
	report.Net = report.Gross.Sub(report.Returned)
	return report
}

// ParsePeriod interpreta fechas YYYY-MM-DD; vacío = sin límite. to es inclusivo hasta el final del día.
func ParsePeriod(fromStr, toStr string) (from, to *time.Time, err error) {
	loc := time.Now().Location()
	if fromStr != "" {
		f, err := time.ParseInLocation("2006-01-02", fromStr, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: from inválido", domain.ErrInvalidInput)
		}
		from = &f
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: to inválido", domain.ErrInvalidInput)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("%w: from no puede ser posterior a to", domain.ErrInvalidInput)
	}
	return from, to, nil
}
