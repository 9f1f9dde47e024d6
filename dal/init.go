package dal

import (
	"fmt"
	"net"

	"github.com/octopus-network/oct-faucet-server/dal/do"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var GlobalDBClient *gorm.DB

type DBConfig struct {
	Username string
	Password string
	// Address including the ip address and port of database (e.g. 127.0.0.1:5432)
	Address      string
	DatabaseName string
}

func (cfg *DBConfig) dsn() (string, error) {
	host, port, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return "", fmt.Errorf("invalid database address %v: %v", cfg.Address, err)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, cfg.Username, cfg.Password, cfg.DatabaseName), nil
}

func InitDB(cfg *DBConfig, autoMigrate bool) error {
	log.Infof("Connecting to database %v at %v...", cfg.DatabaseName, cfg.Address)

	dsn, err := cfg.dsn()
	if err != nil {
		return err
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		return err
	}

	if autoMigrate {
		if err := CreateTables(db); err != nil {
			return err
		}
	}

	GlobalDBClient = db

	log.Infof("Successfully connect to database")

	return nil
}

func CreateTables(db *gorm.DB) error {
	log.Infof("Creating table disbursement_records...")
	err := db.AutoMigrate(&do.DisbursementRecord{})
	if err != nil {
		log.Infof("Fail to create table disbursement_records")
		return err
	}
	return nil
}
