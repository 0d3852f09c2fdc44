package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loanledger/internal/domain/access"
	factoryDomain "loanledger/internal/domain/factory"
)

type FactoryRepository struct{ db *gorm.DB }

func NewFactoryRepository(db *gorm.DB) *FactoryRepository { return &FactoryRepository{db: db} }

func (r *FactoryRepository) Create(ctx context.Context, f *factoryDomain.Factory) error {
	db := r.db.WithContext(ctx)
	roles := f.Roles()
	row := factoryModel{
		Address:      f.Address().Hex(),
		Owner:        roles.Owner.Hex(),
		PendingOwner: roles.PendingOwner.Hex(),
		Worker:       roles.Worker.Hex(),
		Seq:          f.Seq(),
	}
	if err := db.Create(&row).Error; err != nil {
		return err
	}
	return r.saveLeadTimes(db, f)
}

func (r *FactoryRepository) Save(ctx context.Context, f *factoryDomain.Factory) error {
	db := r.db.WithContext(ctx)
	roles := f.Roles()
	res := db.Model(&factoryModel{}).
		Where("address = ?", f.Address().Hex()).
		Updates(map[string]any{
			"owner":         roles.Owner.Hex(),
			"pending_owner": roles.PendingOwner.Hex(),
			"worker":        roles.Worker.Hex(),
			"seq":           f.Seq(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "factory "+f.Address().Hex())
	}
	return r.saveLeadTimes(db, f)
}

func (r *FactoryRepository) Get(ctx context.Context, a common.Address) (*factoryDomain.Factory, error) {
	return r.get(r.db.WithContext(ctx), a)
}

func (r *FactoryRepository) GetForUpdate(ctx context.Context, a common.Address) (*factoryDomain.Factory, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), a)
}

func (r *FactoryRepository) get(db *gorm.DB, a common.Address) (*factoryDomain.Factory, error) {
	var row factoryModel
	if err := db.Where("address = ?", a.Hex()).First(&row).Error; err != nil {
		return nil, notFound(err, "factory "+a.Hex())
	}
	db = db.Session(&gorm.Session{NewDB: true})

	var lts []leadTimeModel
	if err := db.Where("factory_address = ?", row.Address).Find(&lts).Error; err != nil {
		return nil, err
	}
	leadTimes := make(map[factoryDomain.LeadTimeKey]uint64, len(lts))
	for _, m := range lts {
		leadTimes[factoryDomain.LeadTimeKey{Market: m.Market, Type: m.LeadTimeType}] = m.LeadTime
	}

	// the registry is the factory's loan rows in creation order
	var loans []loanModel
	if err := db.Select("address", "loan_id", "creation_index").
		Where("factory_address = ?", row.Address).
		Order("creation_index").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	registry := make([]factoryDomain.Entry, len(loans))
	for i, m := range loans {
		registry[i] = factoryDomain.Entry{Index: m.CreationIndex, ID: m.LoanID, Address: addr(m.Address)}
	}

	roles := access.Roles{Owner: addr(row.Owner), PendingOwner: addr(row.PendingOwner), Worker: addr(row.Worker)}
	return factoryDomain.Restore(addr(row.Address), roles, row.Seq, leadTimes, registry), nil
}

func (r *FactoryRepository) saveLeadTimes(db *gorm.DB, f *factoryDomain.Factory) error {
	lts := f.LeadTimes()
	if len(lts) == 0 {
		return nil
	}
	rows := make([]leadTimeModel, 0, len(lts))
	for k, v := range lts {
		rows = append(rows, leadTimeModel{FactoryAddress: f.Address().Hex(), Market: k.Market, LeadTimeType: k.Type, LeadTime: v})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "factory_address"}, {Name: "market"}, {Name: "lead_time_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"lead_time", "updated_at"}),
	}).Create(&rows).Error
}
