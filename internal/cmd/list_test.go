package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/adrianmross/geo-tree/pkg/config"
)

func TestListOutputs(t *testing.T) {
	baseCfg := config.Config{
		Bookmarks: []config.Bookmark{
			{
				Name:  "paris",
				Query: "region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris",
				Notes: "home",
			},
			{
				Name:  "japan",
				Query: "region=Asia&country=Japan",
				Notes: "",
			},
		},
		CurrentBookmark: "paris",
	}

	tests := []struct {
		name      string
		mutate    func(c config.Config) config.Config
		args      []string
		assert    func(t *testing.T, got string, err error)
		assertErr string
	}{
		{
			name:   "default human output",
			mutate: func(c config.Config) config.Config { return c },
			args:   []string{"list"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				want := strings.Join([]string{
					"* paris (Europe > France > Île-de-France > Paris)",
					"  japan (Asia > Japan)",
					"",
				}, "\n")
				if got != want {
					t.Fatalf("output mismatch\nwant:\n%q\ngot:\n%q", want, got)
				}
			},
		},
		{
			name:   "verbose human output",
			mutate: func(c config.Config) config.Config { return c },
			args:   []string{"list", "-v"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				want := strings.Join([]string{
					"* paris (Europe > France > Île-de-France > Paris query=region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris notes=home)",
					"  japan (Asia > Japan query=region=Asia&country=Japan notes=)",
					"",
				}, "\n")
				if got != want {
					t.Fatalf("output mismatch\nwant:\n%q\ngot:\n%q", want, got)
				}
			},
		},
		{
			name: "no current bookmark",
			mutate: func(c config.Config) config.Config {
				c.CurrentBookmark = ""
				return c
			},
			args: []string{"list"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if strings.Contains(got, "*") {
					t.Fatalf("expected no current marker, got %q", got)
				}
			},
		},
		{
			name:   "plain output",
			mutate: func(c config.Config) config.Config { return c },
			args:   []string{"list", "-o", "plain"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				want := strings.Join([]string{
					"bookmark=paris* query=region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris notes=home",
					"bookmark=japan query=region=Asia&country=Japan notes=",
					"",
				}, "\n")
				if got != want {
					t.Fatalf("output mismatch\nwant:\n%q\ngot:\n%q", want, got)
				}
			},
		},
		{
			name:   "json output",
			mutate: func(c config.Config) config.Config { return c },
			args:   []string{"list", "-o", "json"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				var out []config.Bookmark
				if err := json.Unmarshal([]byte(got), &out); err != nil {
					t.Fatalf("unmarshal json: %v", err)
				}
				want := baseCfg.Bookmarks
				if len(out) != len(want) {
					t.Fatalf("expected %d bookmarks, got %d", len(want), len(out))
				}
				for i := range want {
					if out[i] != want[i] {
						t.Fatalf("bookmark %d mismatch: want %+v got %+v", i, want[i], out[i])
					}
				}
			},
		},
		{
			name:   "yaml output",
			mutate: func(c config.Config) config.Config { return c },
			args:   []string{"list", "-o", "yaml"},
			assert: func(t *testing.T, got string, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				var out []config.Bookmark
				if err := yaml.Unmarshal([]byte(got), &out); err != nil {
					t.Fatalf("unmarshal yaml: %v", err)
				}
				want := baseCfg.Bookmarks
				if len(out) != len(want) {
					t.Fatalf("expected %d bookmarks, got %d", len(want), len(out))
				}
				for i := range want {
					if out[i] != want[i] {
						t.Fatalf("bookmark %d mismatch: want %+v got %+v", i, want[i], out[i])
					}
				}
			},
		},
		{
			name:      "unsupported output",
			mutate:    func(c config.Config) config.Config { return c },
			args:      []string{"list", "-o", "xml"},
			assertErr: "unsupported output format: xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.mutate(baseCfg)
			tmp := t.TempDir()
			cfgPath := tmp + "/config.yml"
			if err := config.Save(cfgPath, cfg); err != nil {
				t.Fatalf("save config: %v", err)
			}

			cmd := newListCmd()
			buf := &bytes.Buffer{}
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append(tt.args, "--config", cfgPath))
			err := cmd.Execute()

			if tt.assertErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.assertErr) {
					t.Fatalf("expected error %q, got %v", tt.assertErr, err)
				}
				return
			}

			if tt.assert == nil {
				t.Fatalf("assert function must be provided for test %q", tt.name)
			}
			tt.assert(t, buf.String(), err)
		})
	}
}
