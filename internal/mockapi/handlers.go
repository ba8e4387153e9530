package mockapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"catalogshell/client/internal/logging"
)

// Роли, которые сервер записывает в токен.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type handlers struct {
	store  *Store
	tokens *TokenIssuer
	log    *logging.Logger
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func (h *handlers) register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role := req.Role
	if role == "" {
		role = RoleUser
	}
	user, err := h.store.CreateUser(c.Request().Context(), req.Username, req.Password, role)
	if errors.Is(err, ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}
	if err != nil {
		h.log.Errorf("register %q: %v", req.Username, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
	}
	token, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot issue token")
	}
	h.log.Infof("registered user %q role=%s", user.Username, user.Role)
	return c.JSON(http.StatusCreated, registerResponse{Token: token, Username: user.Username, Role: user.Role})
}

func (h *handlers) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.store.Authenticate(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, ErrBadCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		h.log.Errorf("login %q: %v", req.Username, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot authenticate")
	}
	token, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot issue token")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, Role: user.Role})
}

func (h *handlers) listProducts(c echo.Context) error {
	products, err := h.store.ListProducts(c.Request().Context())
	if err != nil {
		h.log.Errorf("list products: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *handlers) createProduct(c echo.Context) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	product, err := h.store.CreateProduct(c.Request().Context(), req.product())
	if err != nil {
		h.log.Errorf("create product: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *handlers) updateProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	product, err := h.store.UpdateProduct(c.Request().Context(), id, req.product())
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		h.log.Errorf("update product %d: %v", id, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}
	return c.JSON(http.StatusOK, product)
}

func (h *handlers) deleteProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	err = h.store.DeleteProduct(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		h.log.Errorf("delete product %d: %v", id, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	return c.NoContent(http.StatusNoContent)
}

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	return id, nil
}

func (r productRequest) product() Product {
	return Product{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
	}
}
