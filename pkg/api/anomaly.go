package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo"
	"github.com/pkg/errors"

	"github.com/anomstream/anomalyd/pkg/api/resource"
	"github.com/anomstream/anomalyd/pkg/storage"
)

// defaultListLimit caps list responses when the client does not pass a
// limit query parameter.
const defaultListLimit = 50

func (h *Handler) handleFetchAnomalies(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Anomalies().FetchRecent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAnomalyList(m))
}

func (h *Handler) handleFetchAnomaliesByTransactionID(c echo.Context) error {
	transactionID, err := url.PathUnescape(c.Param("transactionId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	opts := storage.QueryOptions{
		From:  c.QueryParam("from"),
		To:    c.QueryParam("to"),
		Limit: limit,
	}

	m, err := h.store.Anomalies().FindByTransactionID(c.Request().Context(), transactionID, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAnomalyList(m))
}

func (h *Handler) handleGetAnomalyByKey(c echo.Context) error {
	transactionID, err := url.PathUnescape(c.Param("transactionId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	createdAt, err := url.PathUnescape(c.Param("createdAt"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Anomalies().FindByKey(c.Request().Context(), transactionID, createdAt)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewAnomaly(m))
}

func limitParam(c echo.Context) (int, error) {
	param := c.QueryParam("limit")
	if param == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(param)
	if err != nil {
		return 0, err
	}
	if limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}

	return limit, nil
}
