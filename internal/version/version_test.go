package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	got := GetVersionString()
	if !strings.Contains(got, "chatpane version: 1.2.3") {
		t.Errorf("Expected version in string, got %s", got)
	}
	if GetShortVersion() != "1.2.3" {
		t.Errorf("Expected short version 1.2.3, got %s", GetShortVersion())
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.GoVersion != runtime.Version() {
		t.Errorf("Expected go version %s, got %s", runtime.Version(), info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Unexpected platform %s", info.Platform)
	}
}
