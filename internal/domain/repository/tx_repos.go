package repository

// TxRepos agrupa los repositorios atados a una misma unidad de trabajo.
type TxRepos interface {
	Products() ProductRepository
	Movements() MovementRepository
	Sales() SaleRepository
	Adjustments() AdjustmentRepository
}
