package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/Aidin1998/cryptoapi/api/responses"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	apierrors "github.com/Aidin1998/cryptoapi/pkg/errors"
	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) listCryptos(c *gin.Context) {
	q, err := crypto.ParseListQuery(c.Request.URL.Query(), s.limits)
	if err != nil {
		s.writeError(c, err)
		return
	}
	page, err := s.cryptos.List(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) sortedByMarketCap(c *gin.Context) {
	desc, err := crypto.ParseOrder(c.Query("order"), true)
	if err != nil {
		s.writeError(c, err)
		return
	}
	records, err := s.cryptos.SortedByMarketCap(c.Request.Context(), desc)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) sortedByDate(c *gin.Context) {
	desc, err := crypto.ParseOrder(c.Query("order"), true)
	if err != nil {
		s.writeError(c, err)
		return
	}
	records, err := s.cryptos.SortedByDate(c.Request.Context(), desc)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) priceRange(c *gin.Context) {
	filter, err := crypto.ParsePriceRange(c.Request.URL.Query())
	if err != nil {
		s.writeError(c, err)
		return
	}
	records, err := s.cryptos.PriceRange(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) exportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.cryptos.Export(c.Request.Context(), &buf); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cryptos.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) searchByName(c *gin.Context) {
	records, err := s.cryptos.SearchByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if len(records) == 0 {
		responses.NotFound(c, []models.Crypto{})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) getCrypto(c *gin.Context) {
	record, err := s.cryptos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) createCrypto(c *gin.Context) {
	var in crypto.Input
	if !s.bindInput(c, &in) {
		return
	}
	record, err := s.cryptos.Create(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) replaceCrypto(c *gin.Context) {
	var in crypto.Input
	if !s.bindInput(c, &in) {
		return
	}
	record, err := s.cryptos.Replace(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteCrypto(c *gin.Context) {
	record, err := s.cryptos.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) resetCryptos(c *gin.Context) {
	result, err := s.cryptos.Reset(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindInput decodes the JSON body into in, answering 413 when the body
// exceeded the request guard's limit and 400 for anything else
func (s *Server) bindInput(c *gin.Context, in *crypto.Input) bool {
	err := c.ShouldBindJSON(in)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		responses.PayloadTooLarge(c, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		return false
	}
	responses.BadRequest(c, fmt.Sprintf("invalid request body: %v", err))
	return false
}

// writeError maps service errors onto HTTP responses
func (s *Server) writeError(c *gin.Context, err error) {
	var queryErr *crypto.QueryError
	var validationErr *crypto.ValidationError

	switch {
	case errors.Is(err, crypto.ErrNotFound):
		responses.NotFound(c, gin.H{})
	case errors.As(err, &queryErr):
		responses.InvalidQuery(c, queryErr.Error(), apierrors.ValidationError{
			Field:   queryErr.Param,
			Value:   queryErr.Value,
			Message: queryErr.Reason,
			Code:    "invalid_query",
		})
	case errors.As(err, &validationErr):
		fields := make([]apierrors.ValidationError, 0, len(validationErr.Fields))
		for _, fe := range validationErr.Fields {
			fields = append(fields, apierrors.ValidationError{
				Field:   fe.Field,
				Value:   fe.Value,
				Message: fe.Message,
				Code:    fe.Tag,
			})
		}
		responses.BadRequest(c, validationErr.Error(), fields...)
	default:
		s.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", c.GetString(responses.TraceIDKey)),
			zap.Error(err))
		responses.InternalServerError(c, err.Error())
	}
}
