package control

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/danmuck/oscctl/internal/catalog"
	"github.com/danmuck/oscctl/internal/router"
	"github.com/danmuck/oscctl/internal/transport"
	"github.com/gin-gonic/gin"
)

const streamBuffer = 8

// selectRequest takes any integer; the router clamps it into range.
type selectRequest struct {
	Layer *int `json:"layer" binding:"required"`
}

type commandRequest struct {
	Label string `json:"label" binding:"required"`
	// Layer picks the catalog template; the router retargets it at the
	// selected layer regardless.
	Layer int `json:"layer"`
}

type opacityRequest struct {
	Value *float32 `json:"value" binding:"required"`
	Send  bool     `json:"send"`
}

type settingsRequest struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// statusFor maps router and transport failures onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, router.ErrInvalidTarget),
		errors.Is(err, router.ErrInvalidLayer),
		errors.Is(err, transport.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, router.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case transport.KindOf(err) != transport.KindUnknown:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"state": s.router.Snapshot(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleStateStream(c *gin.Context) {
	updates, cancel := s.router.Subscribe(streamBuffer)
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("state", state)
			return true
		}
	})
}

func (s *Server) handleCatalog(c *gin.Context) {
	sel := s.router.Selection()
	layer := sel.Layer
	if raw := c.Query("layer"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, errors.New("layer must be a positive integer"))
			return
		}
		layer = n
	}
	c.JSON(http.StatusOK, catalog.NewSheet(layer, max(sel.LayerCount, layer)))
}

func (s *Server) handleSelectLayer(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.SelectLayer(*req.Layer))
}

func (s *Server) handleAddLayer(c *gin.Context) {
	c.JSON(http.StatusOK, s.router.AddLayer())
}

func (s *Server) handleRemoveLayer(c *gin.Context) {
	c.JSON(http.StatusOK, s.router.RemoveLayer())
}

func (s *Server) handleTriggerAll(c *gin.Context) {
	layer, err := strconv.Atoi(c.Param("layer"))
	if err != nil {
		badRequest(c, errors.New("layer must be an integer"))
		return
	}
	sent, err := s.router.TriggerAllClipsInLayer(c.Request.Context(), layer)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
			"sent":  sent,
			"state": s.router.Snapshot(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent, "state": s.router.Snapshot()})
}

func (s *Server) lookup(c *gin.Context) (catalog.Command, bool) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return catalog.Command{}, false
	}
	if req.Layer == 0 {
		req.Layer = 1
	}
	cmd, err := catalog.Lookup(req.Layer, req.Label)
	if err != nil {
		s.fail(c, err)
		return catalog.Command{}, false
	}
	return cmd, true
}

func (s *Server) handleDispatch(c *gin.Context) {
	cmd, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := s.router.Dispatch(c.Request.Context(), cmd); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleAssign(c *gin.Context) {
	cmd, ok := s.lookup(c)
	if !ok {
		return
	}
	if err := s.router.DispatchForAssignment(c.Request.Context(), cmd); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleOpacity(c *gin.Context) {
	var req opacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.router.UpdateOpacity(*req.Value)
	if req.Send {
		if err := s.router.CommitOpacity(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleCommitOpacity(c *gin.Context) {
	if err := s.router.CommitOpacity(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleDiagnostic(c *gin.Context) {
	if err := s.router.SendDiagnostic(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}

func (s *Server) handleGetSettings(c *gin.Context) {
	current, err := s.router.LoadSettings(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.router.SaveSettings(c.Request.Context(), req.Host, req.Port); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.router.Snapshot())
}
