package dao

import (
	"context"
	"errors"

	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/errcode"

	"gorm.io/gorm"
)

type DisbursementRecordDAO interface {
	Create(ctx context.Context, tx *gorm.DB, record *do.DisbursementRecord) (*do.DisbursementRecord, error)
	GetLatestByAccount(ctx context.Context, tx *gorm.DB, account string) (*do.DisbursementRecord, error)
	GetRecent(ctx context.Context, tx *gorm.DB, num int) ([]*do.DisbursementRecord, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type DisbursementRecordDAOImpl struct{}

var disbursementRecordDAO DisbursementRecordDAO = &DisbursementRecordDAOImpl{}

func GetDisbursementRecordDAOImpl() DisbursementRecordDAO {
	return disbursementRecordDAO
}

func (d *DisbursementRecordDAOImpl) Create(ctx context.Context, tx *gorm.DB, record *do.DisbursementRecord) (*do.DisbursementRecord, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	if record == nil {
		return nil, errcode.ErrNilRecord
	}

	query := tx.Create(record)
	return record, query.Error
}

// GetLatestByAccount returns the most recent record for account ordered by
// disbursement time, or nil when the account has never been funded.
func (d *DisbursementRecordDAOImpl) GetLatestByAccount(ctx context.Context, tx *gorm.DB, account string) (*do.DisbursementRecord, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := do.DisbursementRecord{}
	query := tx.Model(&do.DisbursementRecord{}).Where("account = ?", account).
		Order("time desc").Limit(1).Take(&res)
	if query.Error != nil {
		if errors.Is(query.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, query.Error
	}
	return &res, nil
}

func (d *DisbursementRecordDAOImpl) GetRecent(ctx context.Context, tx *gorm.DB, num int) ([]*do.DisbursementRecord, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.DisbursementRecord, 0)
	if num <= 0 {
		return res, nil
	}
	query := tx.Model(&do.DisbursementRecord{}).Order("time desc").Limit(num).Find(&res)
	return res, query.Error
}

func (d *DisbursementRecordDAOImpl) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var count int64
	query := tx.Model(&do.DisbursementRecord{}).Count(&count)
	return count, query.Error
}
