package httpadapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/brew-water-service/internal/adapter/xlsx"
	"github.com/couchcryptid/brew-water-service/internal/domain"
)

const (
	requestTimeout = 20 * time.Second
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Catalog())
}

func (s *Server) handleDepartements(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	deps, err := s.svc.Departements(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departements": deps})
}

func (s *Server) handleCommunes(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	communes, err := s.svc.Communes(ctx, c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communes": communes})
}

func (s *Server) handleNetworks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	networks, err := s.svc.Networks(ctx, c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"networks": networks})
}

func (s *Server) handleReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	r, err := s.svc.Report(ctx, c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// handleReportXLSX renders into memory first so a failed export still gets a
// JSON error instead of a truncated download.
func (s *Server) handleReportXLSX(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	code := c.Param("code")
	r, err := s.svc.Report(ctx, code)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteReport(&buf, r); err != nil {
		s.logger.Error("xlsx export failed", "network_code", code, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "spreadsheet export failed",
			"request_id": c.GetString(requestIDKey),
		})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="rapport-%s.xlsx"`, code))
	c.Data(http.StatusOK, xlsxMediaType, buf.Bytes())
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	volume, err := domain.ParseVolume(string(req.VolumeLiters))
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	additions := req.additions()
	if req.NetworkCode != "" {
		sim, err := s.svc.SimulateNetwork(ctx, req.NetworkCode, additions, volume)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sim)
		return
	}

	sim, err := s.svc.Simulate(req.Base, additions, volume)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was ready.
const statusClientClosedRequest = 499

// writeError maps domain errors onto HTTP statuses. Invalid input is the
// caller's fault; anything else came from an upstream provider.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = statusClientClosedRequest
	case errors.Is(err, domain.ErrDataShape):
		status = http.StatusBadGateway
	}

	attrs := []any{
		"path", c.Request.URL.Path,
		"status", status,
		"error", err,
		"request_id", c.GetString(requestIDKey),
	}
	switch {
	case status == statusClientClosedRequest:
		s.logger.Debug("client went away", attrs...)
	case status >= 500:
		s.logger.Warn("request failed", attrs...)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	})
}
