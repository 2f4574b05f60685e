package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/shawkym/chatpane/pkg/bridge"
	"github.com/shawkym/chatpane/pkg/config"
	"github.com/shawkym/chatpane/pkg/widget"
)

func TestApplyFlagOverrides(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&serveTitle, "title", "", "")
	flags.StringVar(&serveAddr, "addr", "", "")
	flags.StringVar(&backendURL, "backend", "", "")

	if err := flags.Parse([]string{"--title", "Support", "--backend", "http://agents:9000"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Server.Addr = ":7000"
	applyFlagOverrides(flags, cfg)

	if cfg.Server.Title != "Support" {
		t.Errorf("Expected title Support, got %s", cfg.Server.Title)
	}
	if cfg.Backend.URL != "http://agents:9000" {
		t.Errorf("Expected backend override, got %s", cfg.Backend.URL)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Expected unset flag to keep file value :7000, got %s", cfg.Server.Addr)
	}
}

func TestNewSanitizer(t *testing.T) {
	cfg := config.NewDefaultConfig()
	if _, ok := newSanitizer(cfg).(widget.Trusted); !ok {
		t.Error("Expected trusted markup by default")
	}
	cfg.UI.Sanitize = true
	if _, ok := newSanitizer(cfg).(*widget.PolicySanitizer); !ok {
		t.Error("Expected policy sanitizer when sanitize is on")
	}
}

func TestPerformBackendChecks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get_notifications" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"username":"alice","message":"hi"}]`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := bridge.NewHTTPClient(bridge.Options{BaseURL: ts.URL})
	checks := performBackendChecks(context.Background(), client, ts.URL)
	if len(checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(checks))
	}
	if !allPassed(checks) {
		t.Errorf("Expected all checks to pass, got %+v", checks)
	}
	if checks[1].Message != "1 item(s)" {
		t.Errorf("Expected 1 item, got %s", checks[1].Message)
	}
}

func TestPerformBackendChecksUnreachable(t *testing.T) {
	client := bridge.NewHTTPClient(bridge.Options{BaseURL: "http://127.0.0.1:1"})
	checks := performBackendChecks(context.Background(), client, "http://127.0.0.1:1")
	if len(checks) != 1 || checks[0].Status {
		t.Errorf("Expected a single failed check, got %+v", checks)
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionJSON = true
	defer func() { versionJSON = false }()

	if err := runVersion(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"version"`) {
		t.Errorf("Expected JSON version info, got %s", out.String())
	}
}
