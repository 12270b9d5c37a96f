// Package proxy forwards Anthropic Messages API traffic to OpenRouter,
// pinning every request to one model.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/internal/logger"
	"github.com/petasbytes/aurora-agent/internal/provider"
)

const (
	DefaultTargetModel = provider.DefaultModel
	DefaultPort        = 13337
	DefaultUpstream    = "https://openrouter.ai"
	// PathPrefix is prepended to the client path: /v1/messages becomes
	// /api/v1/messages.
	PathPrefix = "/api"

	Referer = "https://github.com/anthropics/claude-code"
	Title   = "Claude Code via OpenRouter"
)

type Config struct {
	TargetModel string
	Port        int
	Upstream    string
	APIKey      string
	HTTPClient  *http.Client // optional
}

type Server struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger
	engine *gin.Engine
	server *http.Server
}

func New(cfg Config, l *logger.Logger) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("proxy: api key is required")
	}
	if cfg.TargetModel == "" {
		cfg.TargetModel = DefaultTargetModel
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Upstream == "" {
		cfg.Upstream = DefaultUpstream
	}
	cfg.Upstream = strings.TrimSuffix(cfg.Upstream, "/")
	if l == nil {
		l = logger.Nop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logger.GinRecovery(l), logger.GinLogger(l))

	s := &Server{cfg: cfg, client: client, logger: l, engine: engine}
	// Every method and path is forwarded.
	engine.NoRoute(s.forward)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Addr() string { return s.server.Addr }

func (s *Server) Start() error {
	s.logger.Info("starting proxy", zap.String("addr", s.server.Addr), zap.String("target_model", s.cfg.TargetModel))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping proxy")
	return s.server.Shutdown(ctx)
}

func (s *Server) forward(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := RewriteBody(body, s.cfg.TargetModel)

	uri := c.Request.URL.RequestURI()
	target := s.cfg.Upstream + PathPrefix + uri
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, bytes.NewReader(out))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	version := c.GetHeader("anthropic-version")
	if version == "" {
		version = provider.APIVersion
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("anthropic-version", version)
	req.Header.Set("HTTP-Referer", Referer)
	req.Header.Set("X-Title", Title)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("upstream request failed", zap.String("path", uri), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Header("Content-Type", contentType)
	c.Header("Access-Control-Allow-Origin", "*")
	c.Status(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		var captured bytes.Buffer
		_, _ = stream(c.Writer, io.TeeReader(resp.Body, &captured))
		s.logger.Error("upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", uri),
			zap.String("body", captured.String()),
		)
		return
	}
	if _, err := stream(c.Writer, resp.Body); err != nil {
		s.logger.Warn("response stream interrupted", zap.String("path", uri), zap.Error(err))
	}
}

// stream copies src to w, flushing after every chunk so SSE events reach the
// client as they arrive.
func stream(w gin.ResponseWriter, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var n int64
	for {
		r, rerr := src.Read(buf)
		if r > 0 {
			wn, werr := w.Write(buf[:r])
			n += int64(wn)
			if werr != nil {
				return n, werr
			}
			w.Flush()
		}
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, rerr
		}
	}
}
