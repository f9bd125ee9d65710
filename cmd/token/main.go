// token emite un JWT firmado con JWT_SECRET para operar la API sin un proveedor de identidad.
//
// Uso: go run ./cmd/token -user ana -role vendedor [-minutes 480]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

func main() {
	user := flag.String("user", "", "identificador del usuario (claim user_id)")
	role := flag.String("role", jwt.RoleVendedor, "admin | bodeguero | vendedor")
	minutes := flag.Int("minutes", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if err := validate(cfg.JWT.Secret, *user, *role); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	exp := cfg.JWT.Expiration
	if *minutes > 0 {
		exp = *minutes
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *user, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Firmar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func validate(secret, user, role string) error {
	if secret == "" {
		return fmt.Errorf("JWT_SECRET es requerido")
	}
	if user == "" {
		return fmt.Errorf("-user es requerido")
	}
	switch role {
	case jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor:
		return nil
	default:
		return fmt.Errorf("rol desconocido: %q", role)
	}
}
