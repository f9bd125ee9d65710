// seed carga un catálogo inicial desde un CSV. El stock de cada fila entra al ledger
// como movimiento IN "stock inicial", igual que un alta desde la API.
//
// Uso: go run ./cmd/seed [-latin1] [ruta/productos.csv]
// Por defecto lee productos.csv del directorio actual.
// Columnas (con encabezado): sku,nombre,categoria,precio,stock[,alias,notas,ubicacion]
// Los SKU ya existentes se omiten, así que se puede ejecutar más de una vez.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	infrastore "github.com/jhoicas/inventario-ledger/internal/infrastructure/store"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "el CSV viene en ISO-8859-1 (exportado desde Excel)")
	flag.Parse()
	csvPath := "productos.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var src io.Reader = f
	if *latin1 {
		src = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	rows, err := readCatalog(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, closeStore, err := infrastore.Open(ctx, cfg, log.Zerolog())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir almacenamiento: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	events := inventory.NewNotifier(inventory.NopPublisher{}, log.Zerolog())
	ledger := inventory.NewEngine(st, events)
	products := usecase.NewProductUseCase(st, st.Repos().Products(), ledger, events)

	var created, skipped int
	for i, in := range rows {
		if _, err := products.Create(ctx, in); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				skipped++
				continue
			}
			fmt.Fprintf(os.Stderr, "Fila %d (%s): %v\n", i+2, in.Name, err)
			os.Exit(1)
		}
		created++
	}
	log.Info().Int("creados", created).Int("omitidos", skipped).Str("archivo", csvPath).Msg("catálogo cargado")
}

// readCatalog convierte el CSV en solicitudes de alta. La primera fila es el encabezado.
func readCatalog(r io.Reader) ([]dto.CreateProductRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"nombre", "precio"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("falta la columna %q", required)
		}
	}

	var out []dto.CreateProductRequest
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if field("nombre") == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.ReplaceAll(field("precio"), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("fila %d: precio %q: %w", line, field("precio"), err)
		}
		var stock int64
		if s := field("stock"); s != "" {
			if stock, err = strconv.ParseInt(s, 10, 64); err != nil {
				return nil, fmt.Errorf("fila %d: stock %q: %w", line, s, err)
			}
		}
		out = append(out, dto.CreateProductRequest{
			SKU:          field("sku"),
			Name:         field("nombre"),
			Category:     field("categoria"),
			Aliases:      field("alias"),
			Notes:        field("notas"),
			Location:     field("ubicacion"),
			Price:        price,
			InitialStock: stock,
		})
	}
	return out, nil
}
