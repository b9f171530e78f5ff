package server

import (
	"pos/internal/config"
	"pos/internal/handler"

	"github.com/labstack/echo/v4"
)

// ルートを登録したechoを組み立てる
func New(
	cfg config.Config,
	stockH *handler.StockHandler,
	poH *handler.PurchaseOrderHandler,
	productH *handler.AdminProductHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	stockH.RegisterRoutes(e, cfg)
	poH.RegisterRoutes(e, cfg)
	productH.RegisterRoutes(e, cfg)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
