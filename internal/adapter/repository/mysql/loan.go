package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "loanledger/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	db := r.db.WithContext(ctx)
	row := toLoanModel(l)
	if err := db.Create(&row).Error; err != nil {
		return err
	}
	return r.saveChildren(db, l)
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&loanModel{}).
		Where("address = ?", l.Address.Hex()).
		Updates(map[string]any{
			"meta":                l.Meta,
			"meta_version":        l.MetaVersion,
			"status":              int(l.Status),
			"seq":                 l.Seq,
			"pending_installment": l.PendingInstallment,
			"phase_seq":           l.PhaseSeq,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "loan "+l.Address.Hex())
	}
	return r.saveChildren(db, l)
}

func (r *LoanRepository) GetByAddress(ctx context.Context, a common.Address) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx), a)
}

func (r *LoanRepository) GetByAddressForUpdate(ctx context.Context, a common.Address) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), a)
}

func (r *LoanRepository) get(db *gorm.DB, a common.Address) (*loanDomain.Loan, error) {
	var row loanModel
	if err := db.Where("address = ?", a.Hex()).First(&row).Error; err != nil {
		return nil, notFound(err, "loan "+a.Hex())
	}
	l, err := fromLoanModel(row)
	if err != nil {
		return nil, err
	}

	// child reads never need the lock
	db = db.Session(&gorm.Session{NewDB: true})
	key := a.Hex()

	var lenders []lenderModel
	if err := db.Where("loan_address = ?", key).Order("position").Find(&lenders).Error; err != nil {
		return nil, err
	}
	for _, m := range lenders {
		alloc, err := fromLenderModel(m)
		if err != nil {
			return nil, err
		}
		l.Lenders = append(l.Lenders, alloc)
	}

	var insts []installmentModel
	if err := db.Where("loan_address = ?", key).Order("position").Find(&insts).Error; err != nil {
		return nil, err
	}
	for _, m := range insts {
		amt, err := parseAmount("installment amount", m.Amount)
		if err != nil {
			return nil, err
		}
		l.Installments = append(l.Installments, loanDomain.Installment{Index: m.Position, PaymentTime: m.PaymentTime, Amount: amt, Paid: m.Paid, Confirmed: m.Confirmed})
	}

	var transfers []transferModel
	if err := db.Where("loan_address = ?", key).Order("position").Find(&transfers).Error; err != nil {
		return nil, err
	}
	for _, m := range transfers {
		amt, err := parseAmount("transfer amount", m.Amount)
		if err != nil {
			return nil, err
		}
		l.Transfers = append(l.Transfers, loanDomain.TransferRecord{
			Index:     m.Position,
			Kind:      loanDomain.TransferKind(m.Kind),
			From:      m.FromUser,
			To:        m.ToUser,
			Amount:    amt,
			Currency:  m.Currency,
			Reason:    m.Reason,
			TxID:      m.TxID,
			Timestamp: m.Timestamp,
			Hash:      hash(m.Hash),
			Resolved:  m.Resolved,
		})
	}

	var outcomes []outcomeModel
	if err := db.Where("loan_address = ?", key).Order("position").Find(&outcomes).Error; err != nil {
		return nil, err
	}
	for _, m := range outcomes {
		l.Outcomes = append(l.Outcomes, loanDomain.OutcomeRecord{Index: m.Position, Hash: hash(m.Hash), Seq: m.Seq})
	}
	return l, nil
}

// saveChildren upserts every child row by (loan, position). Only installments
// and the resolved flag of transfers change after insert; rows are never
// removed.
func (r *LoanRepository) saveChildren(db *gorm.DB, l *loanDomain.Loan) error {
	key := l.Address.Hex()
	upsert := func(cols ...string) clause.OnConflict {
		return clause.OnConflict{
			Columns:   []clause.Column{{Name: "loan_address"}, {Name: "position"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}
	}

	if len(l.Lenders) > 0 {
		rows := make([]lenderModel, len(l.Lenders))
		for i, a := range l.Lenders {
			rows[i] = lenderModel{
				LoanAddress:  key,
				Position:     a.Index,
				LenderID:     a.ID.Hex(),
				OrderID:      a.OrderID.Hex(),
				LenderUserID: a.LenderUserID.Hex(),
				Amount:       a.Amount.String(),
				AmountWeight: a.AmountWeight.String(),
				RateWeight:   a.RateWeight.String(),
			}
		}
		if err := db.Clauses(upsert("amount")).Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(l.Installments) > 0 {
		rows := make([]installmentModel, len(l.Installments))
		for i, inst := range l.Installments {
			rows[i] = installmentModel{LoanAddress: key, Position: inst.Index, PaymentTime: inst.PaymentTime, Amount: inst.Amount.String(), Paid: inst.Paid, Confirmed: inst.Confirmed}
		}
		if err := db.Clauses(upsert("payment_time", "amount", "paid", "confirmed")).Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(l.Transfers) > 0 {
		rows := make([]transferModel, len(l.Transfers))
		for i, t := range l.Transfers {
			rows[i] = transferModel{
				LoanAddress: key,
				Position:    t.Index,
				Kind:        string(t.Kind),
				FromUser:    t.From,
				ToUser:      t.To,
				Amount:      t.Amount.String(),
				Currency:    t.Currency,
				Reason:      t.Reason,
				TxID:        t.TxID,
				Timestamp:   t.Timestamp,
				Hash:        t.Hash.Hex(),
				Resolved:    t.Resolved,
			}
		}
		if err := db.Clauses(upsert("resolved")).Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(l.Outcomes) > 0 {
		rows := make([]outcomeModel, len(l.Outcomes))
		for i, o := range l.Outcomes {
			rows[i] = outcomeModel{LoanAddress: key, Position: o.Index, Hash: o.Hash.Hex(), Seq: o.Seq}
		}
		if err := db.Clauses(upsert("hash")).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func toLoanModel(l *loanDomain.Loan) loanModel {
	return loanModel{
		Address:            l.Address.Hex(),
		FactoryAddress:     l.Factory.Hex(),
		CreationIndex:      l.Index,
		LoanID:             l.ID,
		Market:             l.Market,
		PrincipalAmount:    l.PrincipalAmount.String(),
		CollateralAmount:   l.CollateralAmount.String(),
		Meta:               l.Meta,
		MetaVersion:        l.MetaVersion,
		CreatedTs:          l.CreatedAt,
		Status:             int(l.Status),
		Seq:                l.Seq,
		PendingInstallment: l.PendingInstallment,
		PhaseSeq:           l.PhaseSeq,
	}
}

func fromLoanModel(m loanModel) (*loanDomain.Loan, error) {
	principal, err := parseAmount("principal", m.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	collateral, err := parseAmount("collateral", m.CollateralAmount)
	if err != nil {
		return nil, err
	}
	return &loanDomain.Loan{
		Address:            addr(m.Address),
		Factory:            addr(m.FactoryAddress),
		Index:              m.CreationIndex,
		ID:                 m.LoanID,
		Market:             m.Market,
		PrincipalAmount:    principal,
		CollateralAmount:   collateral,
		Meta:               m.Meta,
		MetaVersion:        m.MetaVersion,
		CreatedAt:          m.CreatedTs,
		Status:             loanDomain.Status(m.Status),
		Seq:                m.Seq,
		PendingInstallment: m.PendingInstallment,
		PhaseSeq:           m.PhaseSeq,
	}, nil
}

func fromLenderModel(m lenderModel) (loanDomain.LenderAllocation, error) {
	var out loanDomain.LenderAllocation
	amt, err := parseAmount("lender amount", m.Amount)
	if err != nil {
		return out, err
	}
	aw, err := parseAmount("amount weight", m.AmountWeight)
	if err != nil {
		return out, err
	}
	rw, err := parseAmount("rate weight", m.RateWeight)
	if err != nil {
		return out, err
	}
	return loanDomain.LenderAllocation{
		Index:        m.Position,
		ID:           hash(m.LenderID),
		OrderID:      hash(m.OrderID),
		LenderUserID: hash(m.LenderUserID),
		Amount:       amt,
		AmountWeight: aw,
		RateWeight:   rw,
	}, nil
}
