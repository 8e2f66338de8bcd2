package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

// Forwarder performs raw upstream calls.
type Forwarder interface {
	Forward(ctx context.Context, token string, req backend.ForwardRequest) (*backend.RawResponse, error)
}

// ProxyHandler passes requests for resources the gateway does not interpret straight
// through to the upstream backend.
type ProxyHandler struct {
	upstream Forwarder
	logger   *zap.Logger
}

// NewProxyHandler constructs the pass-through handler.
func NewProxyHandler(upstream Forwarder, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyHandler{upstream: upstream, logger: logger}
}

// Forward returns a handler that relays to prefix plus the *path wildcard, if any.
func (h *ProxyHandler) Forward(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := prefix
		if rest := strings.TrimSuffix(c.Param("path"), "/"); rest != "" {
			path += rest
		}

		var body []byte
		if c.Request.Body != nil && c.Request.Method != http.MethodGet {
			read, err := io.ReadAll(c.Request.Body)
			if err != nil {
				badRequest(c, "unreadable request body")
				return
			}
			body = read
		}

		resp, err := h.upstream.Forward(c.Request.Context(), upstreamToken(c), backend.ForwardRequest{
			Method:      c.Request.Method,
			Path:        path,
			Query:       c.Request.URL.Query(),
			Body:        body,
			ContentType: c.ContentType(),
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		if len(resp.Body) == 0 {
			c.Status(resp.StatusCode)
			return
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
	}
}
