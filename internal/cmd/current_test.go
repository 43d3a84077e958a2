package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/adrianmross/geo-tree/pkg/config"
)

func TestCurrentOutputs(t *testing.T) {
	cfg := config.Config{
		Bookmarks: []config.Bookmark{{
			Name:  "paris",
			Query: "region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris",
		}},
		CurrentBookmark: "paris",
	}
	tmp := t.TempDir()
	cfgPath := tmp + "/config.yml"
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"name", []string{"current"}, "paris\n"},
		{"query", []string{"current", "-q"}, "region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCurrentCmd()
			buf := &bytes.Buffer{}
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append(tt.args, "--config", cfgPath))
			if err := cmd.Execute(); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCurrentNoCurrentBookmark(t *testing.T) {
	cfg := config.Config{}
	tmp := t.TempDir()
	cfgPath := tmp + "/config.yml"
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	cmd := newCurrentCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"current", "--config", cfgPath})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no current bookmark set") {
		t.Fatalf("expected error for missing current bookmark, got %v", err)
	}
}

func TestCurrentBookmarkNotFound(t *testing.T) {
	cfg := config.Config{CurrentBookmark: "paris"}
	tmp := t.TempDir()
	cfgPath := tmp + "/config.yml"
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	cmd := newCurrentCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"current", "--config", cfgPath})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "bookmark not found") {
		t.Fatalf("expected bookmark not found error, got %v", err)
	}
}
