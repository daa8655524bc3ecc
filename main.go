package main

import (
	"fmt"
	"log"
	"net/http"

	"MesaQR/internal/bus"
	"MesaQR/internal/config"
	"MesaQR/internal/database"
	httphandler "MesaQR/internal/handlers/http"
	"MesaQR/internal/menu"
	"MesaQR/internal/orders"
	"MesaQR/internal/qrcodes"
	"MesaQR/internal/tables"
	"MesaQR/internal/telegram"
	"MesaQR/internal/version"
	"MesaQR/pkg/logging"
)

func main() {
	logger := logging.GetLogger()
	logger.Info("Start Main")
	v := version.GetVersion()
	logger.Infof("Version %s", v.String())
	defer logger.Info("End Main")

	cfg := config.GetConfig()
	logging.SetDebug(cfg.LOG.Debug == 1)

	db, err := database.NewDB(cfg.DBSQLITE.DB)
	if err != nil {
		logger.Fatalf("failed database.NewDB(%s), %v", cfg.DBSQLITE.DB, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error(err)
		}
	}()

	if cfg.SEED.Demo == 1 {
		if err := database.SeedDemo(db); err != nil {
			logger.Fatalf("failed database.SeedDemo(), %v", err)
		}
	}

	b := bus.New()

	tablesSvc := tables.NewService(db)
	menuSvc := menu.NewService(db)
	qrSvc := qrcodes.NewService(db, tablesSvc, cfg.QR.BaseURL)
	ordersSvc := orders.NewService(db, tablesSvc, menuSvc, qrSvc, b)

	go telegram.NotifierStart(b)

	handler := &httphandler.Handler{
		Orders: ordersSvc,
		Tables: tablesSvc,
		Menu:   menuSvc,
		Qr:     qrSvc,
		Bus:    b,
	}

	logger.Infof("Listening on port %d", cfg.SERVICE.PORT)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.SERVICE.PORT), handler.Router()))
}

func init() {
	logger := logging.GetLogger()

	logger.Println("Start main init...")
	defer logger.Println("End main init.")
	cfg := config.GetConfig()

	if database.Exists(cfg.DBSQLITE.DB) != true {
		logger.Info(cfg.DBSQLITE.DB, " not exist")
		err := database.CreateDB(cfg.DBSQLITE.DB)
		if err != nil {
			logger.Fatalf("%s, %v", cfg.DBSQLITE.DB, err)
		}
	} else {
		logger.Info(cfg.DBSQLITE.DB, " exist")
	}
}
