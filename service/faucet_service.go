package service

import (
	"context"
	"fmt"

	"github.com/octopus-network/oct-faucet-server/constdef"
	"github.com/octopus-network/oct-faucet-server/dal/dao"
	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/errcode"
	"github.com/octopus-network/oct-faucet-server/utils"

	"gorm.io/gorm"
)

type FaucetService interface {
	LatestByAccount(ctx context.Context, tx *gorm.DB, account string) (*do.DisbursementRecord, error)
	CreateRecord(ctx context.Context, tx *gorm.DB, record *do.DisbursementRecord) (*do.DisbursementRecord, error)
	RecentRecords(ctx context.Context, tx *gorm.DB, num int) ([]*do.DisbursementRecord, int64, error)
}

type FaucetServiceImpl struct {
	recordDao dao.DisbursementRecordDAO
}

var faucetService FaucetService = &FaucetServiceImpl{
	recordDao: dao.GetDisbursementRecordDAOImpl(),
}

func GetFaucetService() FaucetService {
	return faucetService
}

func (f *FaucetServiceImpl) LatestByAccount(ctx context.Context, tx *gorm.DB, account string) (*do.DisbursementRecord, error) {
	if utils.IsBlank(account) || len(account) > constdef.MaxAccountLength {
		return nil, fmt.Errorf("invalid account %v: blank or exceed max length", account)
	}

	return f.recordDao.GetLatestByAccount(ctx, tx, account)
}

func (f *FaucetServiceImpl) CreateRecord(ctx context.Context, tx *gorm.DB, record *do.DisbursementRecord) (*do.DisbursementRecord, error) {
	if record == nil {
		return nil, errcode.ErrNilRecord
	}
	if utils.IsBlank(record.Account) || utils.IsBlank(record.Receipt) {
		return nil, fmt.Errorf("invalid record for %v: account and receipt are required", record.Account)
	}
	if len(record.Link) > constdef.MaxLinkLength || len(record.Receipt) > constdef.MaxReceiptLength {
		return nil, errcode.ErrRecordTooLong
	}

	return f.recordDao.Create(ctx, tx, record)
}

// RecentRecords returns the num most recent records together with the total
// record count. num is clamped to the configured bounds.
func (f *FaucetServiceImpl) RecentRecords(ctx context.Context, tx *gorm.DB, num int) ([]*do.DisbursementRecord, int64, error) {
	if num <= 0 {
		num = constdef.DefaultRecentRecordNum
	}
	if num > constdef.MaxRecentRecordNum {
		num = constdef.MaxRecentRecordNum
	}

	records, err := f.recordDao.GetRecent(ctx, tx, num)
	if err != nil {
		return nil, 0, err
	}
	total, err := f.recordDao.CountAll(ctx, tx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
