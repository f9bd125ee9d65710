package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
)

func TestNewPage(t *testing.T) {
	assert.Equal(t, dto.PageRequest{Limit: 20, Offset: 0}, dto.NewPage(0, -5))
	assert.Equal(t, dto.PageRequest{Limit: 100, Offset: 40}, dto.NewPage(500, 40))
	assert.Equal(t, dto.PageResponse{Limit: 7, Offset: 3}, dto.NewPage(7, 3).Response())
}
