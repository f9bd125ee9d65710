package sales

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// ReceiptData datos ya resueltos para imprimir el comprobante de una venta.
type ReceiptData struct {
	StoreName string
	Sale      *entity.Sale
	Lines     []domaininv.ReturnableLine // Returned por línea para mostrar devoluciones
	QRData    string
}

// ReceiptGenerator puerto para generar el PDF del comprobante.
type ReceiptGenerator interface {
	GenerateReceiptPDF(ctx context.Context, data ReceiptData) ([]byte, error)
}

// ReceiptUseCase genera el comprobante de venta (incluye anuladas, marcadas como tales).
type ReceiptUseCase struct {
	queries   *QueryUseCase
	generator ReceiptGenerator
	storeName string
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(queries *QueryUseCase, generator ReceiptGenerator, storeName string) *ReceiptUseCase {
	return &ReceiptUseCase{queries: queries, generator: generator, storeName: storeName}
}

// Download devuelve los bytes del PDF y el nombre de archivo sugerido.
func (uc *ReceiptUseCase) Download(ctx context.Context, saleID string) ([]byte, string, error) {
	sale, err := uc.queries.GetSale(ctx, saleID)
	if err != nil {
		return nil, "", err
	}
	adjs, err := uc.queries.ListAdjustments(ctx, saleID)
	if err != nil {
		return nil, "", err
	}
	data := ReceiptData{
		StoreName: uc.storeName,
		Sale:      sale,
		Lines:     domaininv.Returnable(sale, adjs),
		QRData:    fmt.Sprintf("sale:%s|total:%s", sale.ID, sale.Total.StringFixed(2)),
	}
	pdf, err := uc.generator.GenerateReceiptPDF(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("generar comprobante: %w", err)
	}
	return pdf, "venta-" + sale.ID + ".pdf", nil
}
