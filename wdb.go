package walletcore

import (
	"os"
	"path"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lynxwallet/walletcore/schema"
)

const sqliteName = "wallet.sqlite"

// Wdb is the queryable transfer-history index. The bolt Store stays the
// source of truth; Wdb exists so history can be paged and filtered without
// loading the whole collection.
type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect wdb success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite wdb success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.TokenTransferAction{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) InsertTransferActions(actions []schema.TokenTransferAction) error {
	if len(actions) == 0 {
		return nil
	}
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&actions).Error
}

func (w *Wdb) GetTransferActions(accountID string, balanceID string, offset, limit int) ([]schema.TokenTransferAction, error) {
	if limit == 0 {
		limit = 50
	}
	res := make([]schema.TokenTransferAction, 0, limit)
	q := w.Db.Where("account_id = ?", accountID)
	if balanceID != "" {
		q = q.Where("token_balance_id = ?", balanceID)
	}
	err := q.Order("date desc").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (w *Wdb) DeleteTransferAction(txID string, actionSeq uint64) error {
	return w.Db.Where("tx_id = ? and action_seq = ?", txID, actionSeq).Delete(&schema.TokenTransferAction{}).Error
}

func (w *Wdb) CountTransferActions(accountID string) (int64, error) {
	var count int64
	err := w.Db.Model(&schema.TokenTransferAction{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
