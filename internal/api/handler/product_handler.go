package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/storefront-api/internal/api/metrics"
	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
)

const (
	msgSuccess          = "success"
	msgDataNotFound     = "Data not found"
	msgAlreadyDeleted   = "Data not found or data already deleted"
	msgCategoryNotFound = "Cannot find category"
)

// ProductHandler handles HTTP requests for products and categories.
type ProductHandler struct {
	service ports.ProductService
}

func NewProductHandler(service ports.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

func observeProduct(op string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = outcomeOf(err)
	}
	metrics.ProductOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// Create adds a product to an existing category.
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      createProductRequest  true  "Product details"
// @Success      200   {object}  envelope{data=domain.Product}
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeProduct("create", domain.ErrValidation)
		return err
	}

	p, err := h.service.CreateProduct(c.Request().Context(), ports.CreateProductInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	observeProduct("create", err)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, msgCategoryNotFound)
		}
		return err
	}

	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: p})
}

// Count returns the number of live products.
//
// @Summary      Count products
// @Tags         products
// @Produce      json
// @Success      200  {object}  envelope{data=int}
// @Failure      404  {object}  errorResponse
// @Router       /products/count [get]
func (h *ProductHandler) Count(c echo.Context) error {
	n, err := h.service.CountProducts(c.Request().Context())
	observeProduct("count", err)
	if err != nil {
		return err
	}
	if n == 0 {
		return echo.NewHTTPError(http.StatusNotFound, msgDataNotFound)
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: n})
}

// List returns every live product.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200  {object}  envelope{data=[]domain.Product}
// @Failure      404  {object}  errorResponse
// @Router       /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	list, err := h.service.ListProducts(c.Request().Context())
	observeProduct("list", err)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, msgDataNotFound)
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: list})
}

// Get returns one product.
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  envelope{data=domain.Product}
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.service.GetProduct(c.Request().Context(), c.Param("id"))
	observeProduct("get", err)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, msgDataNotFound)
		}
		return err
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: p})
}

// Update applies a partial update.
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Product ID"
// @Param        body  body      updateProductRequest  true  "Fields to change"
// @Success      200   {object}  envelope{data=domain.Product}
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /products/{id} [patch]
func (h *ProductHandler) Update(c echo.Context) error {
	var req updateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeProduct("update", domain.ErrValidation)
		return err
	}

	p, err := h.service.UpdateProduct(c.Request().Context(), c.Param("id"), req.patch())
	observeProduct("update", err)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			return echo.NewHTTPError(http.StatusNotFound, msgDataNotFound)
		case errors.Is(err, domain.ErrCategoryNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, msgCategoryNotFound)
		}
		return err
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: p})
}

// Delete soft-deletes a product.
//
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  envelope
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	err := h.service.DeleteProduct(c.Request().Context(), c.Param("id"))
	observeProduct("delete", err)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, msgAlreadyDeleted)
		}
		return err
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess})
}

// CreateCategory adds a category.
//
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        body  body      createCategoryRequest  true  "Category details"
// @Success      200   {object}  envelope{data=domain.Category}
// @Failure      400   {object}  errorResponse
// @Router       /categories [post]
func (h *ProductHandler) CreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		observeProduct("create_category", domain.ErrValidation)
		return err
	}

	cat, err := h.service.CreateCategory(c.Request().Context(), ports.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	observeProduct("create_category", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: cat})
}

// ListCategories returns every category.
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200  {object}  envelope{data=[]domain.Category}
// @Router       /categories [get]
func (h *ProductHandler) ListCategories(c echo.Context) error {
	list, err := h.service.ListCategories(c.Request().Context())
	observeProduct("list_categories", err)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Category{}
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: list})
}
