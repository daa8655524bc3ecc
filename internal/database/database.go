package database

import (
	"os"

	"MesaQR/pkg/logging"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

func Exists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

func CreateDB(dbname string) error {

	logger := logging.GetLogger()
	logger.Info("CreateDB:>Start")
	defer logger.Info("CreateDB:>End")

	logger.Info("CreateDB:>Creating ", dbname)

	db, err := sqlx.Open("sqlite3", dbname+"?_fk=1")
	if err != nil {
		return errors.Wrapf(err, "failed sqlx.Open(%s)", dbname)
	}
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Error(err)
		}
	}(db)

	db.MustExec(DB_SCHEMA)

	logger.Info(dbname, " created")
	return nil
}

// NewDB opens an existing database with foreign keys enabled.
func NewDB(dbname string) (*sqlx.DB, error) {

	logger := logging.GetLogger()
	logger.Debug("Start NewDB")
	defer logger.Debug("End NewDB")

	db, err := sqlx.Open("sqlite3", dbname+"?_fk=1")
	if err != nil {
		return nil, errors.Wrapf(err, "failed sqlx.Open(%s)", dbname)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "failed db.Ping(); db: %s", dbname)
	}

	return db, nil
}
