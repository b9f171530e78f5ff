package main

import (
	"context"
	"time"

	"pos/internal/config"
	"pos/internal/domain/model"
	"pos/internal/handler"
	"pos/internal/infra/db"
	infraRepo "pos/internal/infra/repository"
	"pos/internal/lock"
	"pos/internal/server"
	"pos/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 配置に応じてプロセス内ロックかRedisロックを選ぶ
func newLockManager(ctx context.Context, cfg config.Config) lock.Manager {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return lock.NewRedisLockManager(client)
	}

	m := lock.NewKeyedMutex()
	//リース切れロックの定期回収
	m.StartJanitor(ctx, 10*time.Minute)
	return m
}

func main() {
	// .envは無くてもよい（コンテナでは環境変数直渡し）
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//logger
	var logger *zap.Logger
	if cfg.GoEnv == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.InventoryRecord{},
		&model.StockMovement{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
	); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	ctx := context.Background()

	//TxManagerとロック
	tx := infraRepo.NewTxManagerGorm(gormDB)
	locks := newLockManager(ctx, cfg)

	//Usecase生成
	stockUC := usecase.NewStockUsecase(tx, logger)
	reportUC := usecase.NewInventoryReportUsecase(tx)
	productUC := usecase.NewProductUsecase(tx, logger)
	poUC := usecase.NewPurchaseOrderUsecase(tx, locks, logger)

	//Handler生成
	stockH := handler.NewStockHandler(stockUC, reportUC)
	poH := handler.NewPurchaseOrderHandler(poUC)
	productH := handler.NewAdminProductHandler(productUC, stockUC)

	//Server起動
	e := server.New(cfg, stockH, poH, productH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(e, addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
