package book

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	catalogsvc "librarycatalog/service/catalog"

	"librarycatalog/model"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc catalogsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == string(model.RoleAdmin)
}

func toBook(req BookReq) *model.Book {
	return &model.Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Genre:           req.Genre,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		TotalCopies:     req.TotalCopies,
	}
}

// Search books
// @Summary      Search the catalog
// @Description  Filtered, paginated, sorted catalog search
// @Tags         books
// @Produce      json
// @Param        query      query  string  false  "free-text across title/author/isbn/genre/publisher/description"
// @Param        genre      query  string  false  "genre substring"
// @Param        author     query  string  false  "author substring"
// @Param        publisher  query  string  false  "publisher substring"
// @Param        yearFrom   query  int     false  "publication year lower bound"
// @Param        yearTo     query  int     false  "publication year upper bound"
// @Param        available  query  bool    false  "only books with a copy on the shelf"
// @Param        page       query  int     false  "zero-indexed page"
// @Param        size       query  int     false  "page size (default 10)"
// @Param        sort       query  string  false  "title|author|year, optionally ',desc'"
// @Success      200  {object}  model.BookPage
// @Router       /books/search [get]
func (h *Controller) Search(c echo.Context) error {
	f := model.SearchFilter{
		Query:     c.QueryParam("query"),
		Genre:     c.QueryParam("genre"),
		Author:    c.QueryParam("author"),
		Publisher: c.QueryParam("publisher"),
	}
	if v := strings.TrimSpace(c.QueryParam("yearFrom")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid yearFrom"})
		}
		f.YearFrom = &n
	}
	if v := strings.TrimSpace(c.QueryParam("yearTo")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid yearTo"})
		}
		f.YearTo = &n
	}
	if v := strings.TrimSpace(c.QueryParam("available")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid available"})
		}
		f.Available = b
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	out, err := h.Svc.Search(c.Request().Context(), f, page, size, c.QueryParam("sort"))
	if err != nil {
		h.Log.Error("book search error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /books — unfiltered browse, same paging as search.
func (h *Controller) List(c echo.Context) error {
	return h.Search(c)
}

// GET /books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if catalogsvc.Code(err) == catalogsvc.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		h.Log.Error("book detail error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, row)
}

// POST /books (admin)
// @Summary      Add a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  BookReq  true  "Book payload"
// @Success      201  {object}  model.Book
// @Failure      409  {object}  map[string]any "isbn already registered"
// @Router       /books [post]
func (h *Controller) Create(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.Create(c.Request().Context(), toBook(req))
	if err != nil {
		switch catalogsvc.Code(err) {
		case catalogsvc.ErrISBNTaken:
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already registered"})
		case catalogsvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		default:
			h.Log.Error("book create error", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, out)
}

// PUT /books/:id (admin)
func (h *Controller) Update(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.Update(c.Request().Context(), id, toBook(req))
	if err != nil {
		switch catalogsvc.Code(err) {
		case catalogsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case catalogsvc.ErrISBNTaken:
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already registered"})
		case catalogsvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		default:
			h.Log.Error("book update error", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /books/:id (admin)
func (h *Controller) Delete(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		switch catalogsvc.Code(err) {
		case catalogsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case catalogsvc.ErrHasActiveLoans:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book has active loans"})
		default:
			h.Log.Error("book delete error", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
