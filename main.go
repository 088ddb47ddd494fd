// Package main library catalog API.
//
// @title           Library Catalog API
// @version         1.0
// @description     Library catalog and lending service (books, borrowings, users).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"librarycatalog/app/echoServer"
	authctrl "librarycatalog/app/echoServer/controller/auth"
	bookctrl "librarycatalog/app/echoServer/controller/book"
	borrowctrl "librarycatalog/app/echoServer/controller/borrowing"
	"librarycatalog/app/echoServer/validation"
	"librarycatalog/config"
	bookrepo "librarycatalog/repository/book"
	borrowingrepo "librarycatalog/repository/borrowing"
	userrepo "librarycatalog/repository/user"
	authsvc "librarycatalog/service/auth"
	catalogsvc "librarycatalog/service/catalog"
	lendingsvc "librarycatalog/service/lending"
	"librarycatalog/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB over pgx
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	// repos
	br := bookrepo.New(db)
	lr := borrowingrepo.New(db)
	ur := userrepo.New(db)

	// services
	txr := database.Runner{DB: db}
	as := authsvc.New(ur, cfg.JWTSecret, cfg.AdminEmail)
	cs := catalogsvc.New(txr, br, lr)
	ls := lendingsvc.New(txr, br, lr, time.Duration(cfg.LoanPeriodDays)*24*time.Hour, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: cs, V: v, Log: log}
	borrowC := &borrowctrl.Controller{Svc: ls, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Borrowing: borrowC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Info("starting server", "port", port, "loan_period_days", cfg.LoanPeriodDays)

	e.Logger.Fatal(e.Start(":" + port))
}
