package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	srvipc "github.com/adrianmross/geo-tree/internal/ipc"
	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
	ipcmsg "github.com/adrianmross/geo-tree/pkg/ipc"
)

type stubFetcher struct{}

func (stubFetcher) CountriesByRegion(_ context.Context, region string) ([]geo.Record, error) {
	if region == "Europe" {
		return []geo.Record{{ID: 75, Name: "France", ISO2: "FR"}}, nil
	}
	return nil, nil
}

func (stubFetcher) StatesByCountry(_ context.Context, countryID int64) ([]geo.Record, error) {
	if countryID == 75 {
		return []geo.Record{{ID: 4796, Name: "Île-de-France", StateCode: "IDF", CountryCode: "FR"}}, nil
	}
	return nil, nil
}

func (stubFetcher) StateByCode(_ context.Context, stateCode, countryCode string) (geo.Record, error) {
	return geo.Record{ID: 4796, Name: "Île-de-France", StateCode: stateCode, CountryCode: countryCode}, nil
}

func (stubFetcher) CitiesByState(_ context.Context, _ int64, _ string, _ int) ([]geo.Record, error) {
	return []geo.Record{{ID: 44856, Name: "Paris", StateCode: "IDF", CountryCode: "FR"}}, nil
}

const parisQuery = "region=Europe&country=France&state=%C3%8Ele-de-France&city=Paris"

func newTestService(t *testing.T, socket string) (*Service, string) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	cfg := config.DefaultConfig(t.TempDir())
	if socket != "" {
		cfg.Options.SocketPath = socket
	}
	cfg.Bookmarks = []config.Bookmark{
		{Name: "paris", Query: parisQuery},
		{Name: "france", Query: "region=Europe&country=France"},
	}
	cfg.CurrentBookmark = "paris"
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	svc, err := NewService(cfgPath, stubFetcher{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, cfgPath
}

func TestHandleBookmarks(t *testing.T) {
	svc, cfgPath := newTestService(t, "")
	ctx := context.Background()

	got, err := svc.handle(ctx, ipcmsg.Request{Method: "get_current"})
	if err != nil || got.(config.Bookmark).Name != "paris" {
		t.Fatalf("get_current: %v %v", got, err)
	}

	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "use_bookmark", Name: "france"}); err != nil {
		t.Fatalf("use_bookmark: %v", err)
	}
	saved, _ := config.Load(cfgPath)
	if saved.CurrentBookmark != "france" {
		t.Fatalf("use_bookmark not persisted: %q", saved.CurrentBookmark)
	}
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "use_bookmark", Name: "nope"}); !errors.Is(err, config.ErrBookmarkNotFound) {
		t.Fatalf("expected ErrBookmarkNotFound, got %v", err)
	}

	raw, _ := json.Marshal(config.Bookmark{Name: "asia", Query: "region=Asia"})
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "add_bookmark", Bookmark: raw}); err != nil {
		t.Fatalf("add_bookmark: %v", err)
	}
	bad, _ := json.Marshal(config.Bookmark{Name: "bad", Query: "country=France"})
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "add_bookmark", Bookmark: bad}); err == nil {
		t.Fatalf("expected validation error for bookmark without region")
	}
	list, _ := svc.handle(ctx, ipcmsg.Request{Method: "list"})
	if n := len(list.([]config.Bookmark)); n != 3 {
		t.Fatalf("expected 3 bookmarks, got %d", n)
	}

	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "delete_bookmark", Name: "france"}); err != nil {
		t.Fatalf("delete_bookmark: %v", err)
	}
	saved, _ = config.Load(cfgPath)
	if saved.CurrentBookmark != "" || len(saved.Bookmarks) != 2 {
		t.Fatalf("delete not persisted: %+v", saved)
	}

	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "bogus"}); !errors.Is(err, srvipc.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestHandleExport(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	got, err := svc.handle(ctx, ipcmsg.Request{Method: "export", Format: "query"})
	if err != nil {
		t.Fatalf("export query: %v", err)
	}
	if q := got.(map[string]string)["query"]; q != parisQuery {
		t.Fatalf("unexpected query %q", q)
	}
	got, err = svc.handle(ctx, ipcmsg.Request{Method: "export", Format: "env"})
	if err != nil {
		t.Fatalf("export env: %v", err)
	}
	lines := got.(map[string][]string)["env"]
	if len(lines) != 6 || lines[0] != "GEOTREE_BOOKMARK=paris" {
		t.Fatalf("unexpected env lines %v", lines)
	}
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "export", Format: "xml"}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestHandleRestoreSelectTree(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	got, err := svc.handle(ctx, ipcmsg.Request{Method: "restore"})
	if err != nil {
		t.Fatalf("restore current: %v", err)
	}
	sel := got.(Selection)
	if len(sel.Chain) != 4 || sel.Query != parisQuery {
		t.Fatalf("unexpected selection %+v", sel)
	}
	for _, n := range sel.Chain {
		if n.Children != nil {
			t.Fatalf("selection chain must not carry children")
		}
	}

	got, err = svc.handle(ctx, ipcmsg.Request{Method: "restore", Name: "france"})
	if err != nil || got.(Selection).Query != "region=Europe&country=France" {
		t.Fatalf("restore by name: %v %v", got, err)
	}

	got, err = svc.handle(ctx, ipcmsg.Request{Method: "select", Key: "States:4796"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q := got.(Selection).Query; q != "region=Europe&country=France&state=%C3%8Ele-de-France" {
		t.Fatalf("unexpected query after select %q", q)
	}
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "select"}); err == nil {
		t.Fatalf("expected key is required error")
	}
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "select", Key: "Cities:1"}); !errors.Is(err, browser.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}

	tv := svc.tree()
	if tv.Selected != "States:4796" || len(tv.Roots) != 6 || len(tv.Pending) != 0 {
		t.Fatalf("unexpected tree view %+v", tv)
	}

	got, err = svc.handle(ctx, ipcmsg.Request{Method: "locate", Value: "Paris"})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	matches := got.([]browser.Match)
	if len(matches) != 1 || matches[0].Region != "Europe" {
		t.Fatalf("unexpected locate result %+v", matches)
	}
	if _, err := svc.handle(ctx, ipcmsg.Request{Method: "locate"}); err == nil {
		t.Fatalf("expected value is required error")
	}
}

func TestServeRoundTrip(t *testing.T) {
	// unix socket paths are length-limited, keep it short
	dir, err := os.MkdirTemp("", "gt")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "d.sock")
	svc, _ := newTestService(t, socket)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var conn *ipcmsg.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err = ipcmsg.Dial(socket)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	var cur config.Bookmark
	if err := conn.Call(ipcmsg.Request{Method: "get_current"}, &cur); err != nil || cur.Name != "paris" {
		t.Fatalf("get_current over socket: %+v %v", cur, err)
	}
	var sel Selection
	if err := conn.Call(ipcmsg.Request{Method: "restore", Query: "?region=Europe&country=France"}, &sel); err != nil {
		t.Fatalf("restore over socket: %v", err)
	}
	if len(sel.Chain) != 2 || sel.Chain[1].Level != geo.Countries || sel.Params.Country != "France" {
		t.Fatalf("unexpected selection %+v", sel)
	}
	err = conn.Call(ipcmsg.Request{Method: "bogus"}, nil)
	if err == nil || !strings.Contains(err.Error(), "method not implemented") {
		t.Fatalf("expected not implemented error, got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
