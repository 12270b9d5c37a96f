package main

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/petasbytes/aurora-agent/internal/config"
	"github.com/petasbytes/aurora-agent/internal/proxy"
)

func baseConfig() *config.Config {
	return &config.Config{
		APIKey: "k",
		Proxy: config.ProxyConfig{
			TargetModel: proxy.DefaultTargetModel,
			Port:        proxy.DefaultPort,
			Upstream:    proxy.DefaultUpstream,
		},
	}
}

func TestProxyConfig(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantModel string
		wantPort  int
		wantErr   string
	}{
		{name: "defaults", wantModel: "openrouter/aurora-alpha", wantPort: 13337},
		{name: "model only", args: []string{"anthropic/claude-sonnet"}, wantModel: "anthropic/claude-sonnet", wantPort: 13337},
		{name: "model and port", args: []string{"x/y", "8080"}, wantModel: "x/y", wantPort: 8080},
		{name: "bad port", args: []string{"x/y", "eighty"}, wantErr: "invalid port"},
		{name: "port out of range", args: []string{"x/y", "70000"}, wantErr: "invalid port"},
		{name: "too many", args: []string{"a", "1", "b"}, wantErr: "at most 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := proxyConfig(baseConfig(), tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected %q error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if pc.TargetModel != tt.wantModel || pc.Port != tt.wantPort || pc.APIKey != "k" {
				t.Fatalf("got %+v", pc)
			}
		})
	}
}

func TestApp_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	os.Unsetenv("OPENROUTER_API_KEY")
	t.Setenv("AURORA_CONFIG", "")
	os.Unsetenv("AURORA_CONFIG")

	err := newApp(io.Discard).Run(context.Background(), []string{"aurora-proxy"})
	if err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY is not set") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
