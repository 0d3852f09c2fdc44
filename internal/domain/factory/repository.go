package factory

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	Create(ctx context.Context, f *Factory) error
	// Get loads roles, lead times and the registry.
	Get(ctx context.Context, addr common.Address) (*Factory, error)
	// GetForUpdate is Get with the factory row locked until the transaction
	// ends, which serializes createLoan and role changes.
	GetForUpdate(ctx context.Context, addr common.Address) (*Factory, error)
	// Save writes roles, seq and lead times. Registry rows are written by the
	// loan repository when a loan is created.
	Save(ctx context.Context, f *Factory) error
}
