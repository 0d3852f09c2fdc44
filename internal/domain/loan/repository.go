package loan

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	// Create stores a freshly minted loan.
	Create(ctx context.Context, l *Loan) error
	GetByAddress(ctx context.Context, addr common.Address) (*Loan, error)
	// GetByAddressForUpdate locks the loan row for the rest of the transaction.
	GetByAddressForUpdate(ctx context.Context, addr common.Address) (*Loan, error)
	// Save writes the loan row and upserts its child ledgers.
	Save(ctx context.Context, l *Loan) error
}
