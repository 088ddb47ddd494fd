package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"

	ls "librarycatalog/service/lending"

	"librarycatalog/model"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ls.Service
	Log *slog.Logger
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == string(model.RoleAdmin)
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// content wraps a listing; an empty result must render as [], not null.
func content(rows []model.Borrowing) echo.Map {
	if rows == nil {
		rows = []model.Borrowing{}
	}
	return echo.Map{"content": rows}
}

// Borrow a book
// @Summary      Borrow one copy
// @Tags         borrowings
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "book id"
// @Success      201  {object}  model.Borrowing
// @Failure      409  {object}  map[string]any "no copies available / already borrowed"
// @Router       /books/{id}/borrow [post]
func (h *Controller) Borrow(c echo.Context) error {
	return h.borrow(c, "id")
}

// BorrowAlias handles POST /borrowings/borrow/:bookId.
func (h *Controller) BorrowAlias(c echo.Context) error {
	return h.borrow(c, "bookId")
}

func (h *Controller) borrow(c echo.Context, param string) error {
	bookID, ok := pathID(c, param)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Borrow(c.Request().Context(), uid, bookID)
	if err != nil {
		switch ls.Code(err) {
		case ls.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case ls.ErrNoCopies:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copies available"})
		case ls.ErrDuplicateLoan:
			return c.JSON(http.StatusConflict, echo.Map{"message": "you already have this book on loan"})
		default:
			h.Log.Error("borrow", "err", err, "book_id", bookID, "user_id", uid)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /borrowings/return/:id — own loan, or any loan for admins.
func (h *Controller) Return(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Return(c.Request().Context(), uid, isAdmin(c), id)
	if err != nil {
		switch ls.Code(err) {
		case ls.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case ls.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case ls.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book already returned"})
		default:
			h.Log.Error("return", "err", err, "borrowing_id", id, "user_id", uid)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, out)
}

// GET /borrowings/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.MyLoans(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("my loans", "err", err, "user_id", uid)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, content(rows))
}

// GET /borrowings/user/:userId (admin)
func (h *Controller) ByUser(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.UserLoans(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("user loans", "err", err, "user_id", userID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, content(rows))
}

// GET /borrowings/book/:bookId (admin)
func (h *Controller) ByBook(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.BookLoans(c.Request().Context(), bookID)
	if err != nil {
		h.Log.Error("book loans", "err", err, "book_id", bookID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, content(rows))
}

// GET /borrowings (admin)
func (h *Controller) All(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rows, err := h.Svc.AllLoans(c.Request().Context())
	if err != nil {
		h.Log.Error("all loans", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, content(rows))
}
