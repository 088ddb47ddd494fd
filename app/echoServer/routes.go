package echoServer

import (
	"net/http"

	"librarycatalog/app/echoServer/controller/auth"
	"librarycatalog/app/echoServer/controller/book"
	"librarycatalog/app/echoServer/controller/borrowing"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public: auth + catalog browsing need no token.
	e.POST("/auth/register", c.Auth.Register)
	e.POST("/auth/login", c.Auth.Login)

	e.GET("/books", c.Book.List)
	e.GET("/books/search", c.Book.Search)
	e.GET("/books/:id", c.Book.Detail)

	// Everything else requires a verified bearer token.
	authed := e.Group("")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		},
	}))
	authed.Use(Identity())

	// Catalog mutations (admin-gated inside the handlers)
	authed.POST("/books", c.Book.Create)
	authed.PUT("/books/:id", c.Book.Update)
	authed.DELETE("/books/:id", c.Book.Delete)

	// Lending
	authed.POST("/books/:id/borrow", c.Borrowing.Borrow)
	authed.POST("/borrowings/borrow/:bookId", c.Borrowing.BorrowAlias)
	authed.POST("/borrowings/return/:id", c.Borrowing.Return)

	// Loan listings
	authed.GET("/borrowings/my", c.Borrowing.My)
	authed.GET("/borrowings", c.Borrowing.All)
	authed.GET("/borrowings/user/:userId", c.Borrowing.ByUser)
	authed.GET("/borrowings/book/:bookId", c.Borrowing.ByBook)
}
