package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	srvipc "github.com/adrianmross/geo-tree/internal/ipc"
	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
	ipcmsg "github.com/adrianmross/geo-tree/pkg/ipc"
	"github.com/adrianmross/geo-tree/pkg/query"
)

// Service holds daemon state: the config and one shared browsing session.
type Service struct {
	cfgPath string
	browser *browser.Browser

	mu  sync.Mutex
	cfg config.Config
}

// Selection is the payload of restore and select.
type Selection struct {
	Chain  []geo.Node   `json:"chain"`
	Params query.Params `json:"params"`
	Query  string       `json:"query"`
}

// TreeView is the payload of tree.
type TreeView struct {
	Roots    []geo.Node        `json:"roots"`
	Selected string            `json:"selected,omitempty"`
	Params   query.Params      `json:"params"`
	Query    string            `json:"query"`
	Errors   map[string]string `json:"errors,omitempty"`
	Pending  []string          `json:"pending,omitempty"`
}

// NewService loads config and returns a Service browsing through f.
func NewService(cfgPath string, f browser.Fetcher) (*Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	b := browser.New(f, browser.Options{CitiesPageSize: cfg.Options.WithEnv().PageSize()})
	return &Service{cfgPath: cfgPath, cfg: cfg, browser: b}, nil
}

// Options returns the loaded options with environment overrides applied.
func (s *Service) Options() config.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Options.WithEnv()
}

// Serve runs the IPC server until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	defer s.browser.Close()
	socket := s.Options().SocketPath
	if err := os.MkdirAll(filepath.Dir(socket), 0o755); err != nil {
		return err
	}
	logger.L().Info("daemon_listen", "socket", socket)
	return srvipc.Serve(ctx, socket, s.handle)
}

func (s *Service) handle(ctx context.Context, req ipcmsg.Request) (interface{}, error) {
	switch req.Method {
	case "get_current":
		return s.getCurrent()
	case "list":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cfg.Bookmarks, nil
	case "use_bookmark":
		return s.useBookmark(req.Name)
	case "add_bookmark":
		return s.addBookmark(req.Bookmark)
	case "delete_bookmark":
		return s.deleteBookmark(req.Name)
	case "export":
		return s.export(req.Format)
	case "restore":
		return s.restore(ctx, req)
	case "select":
		return s.selectNode(ctx, req.Key)
	case "tree":
		return s.tree(), nil
	case "locate":
		if req.Value == "" {
			return nil, errors.New("value is required")
		}
		return browser.Locate(s.browser.Tree(), req.Value), nil
	default:
		return nil, srvipc.ErrNotImplemented
	}
}

func (s *Service) getCurrent() (config.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.CurrentBookmark == "" {
		return config.Bookmark{}, errors.New("no current bookmark set")
	}
	return s.cfg.GetBookmark(s.cfg.CurrentBookmark)
}

func (s *Service) useBookmark(name string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cfg.GetBookmark(name); err != nil {
		return nil, err
	}
	s.cfg.CurrentBookmark = name
	if err := config.Save(s.cfgPath, s.cfg); err != nil {
		return nil, err
	}
	return map[string]string{"current_bookmark": name}, nil
}

func (s *Service) addBookmark(raw json.RawMessage) (interface{}, error) {
	var b config.Bookmark
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cfg.UpsertBookmark(b); err != nil {
		return nil, err
	}
	if err := config.Save(s.cfgPath, s.cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) deleteBookmark(name string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cfg.DeleteBookmark(name); err != nil {
		return nil, err
	}
	if err := config.Save(s.cfgPath, s.cfg); err != nil {
		return nil, err
	}
	return map[string]string{"deleted": name}, nil
}

func (s *Service) export(format string) (interface{}, error) {
	b, err := s.getCurrent()
	if err != nil {
		return nil, err
	}

	switch format {
	case "env":
		lines, err := b.Env()
		if err != nil {
			return nil, err
		}
		return map[string][]string{"env": lines}, nil
	case "query":
		p, err := b.Params()
		if err != nil {
			return nil, err
		}
		return map[string]string{"query": p.Encode()}, nil
	case "json", "":
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// restore loads req.Query, or the named bookmark, or the current bookmark.
func (s *Service) restore(ctx context.Context, req ipcmsg.Request) (Selection, error) {
	raw := req.Query
	if raw == "" {
		var b config.Bookmark
		var err error
		if req.Name != "" {
			s.mu.Lock()
			b, err = s.cfg.GetBookmark(req.Name)
			s.mu.Unlock()
		} else {
			b, err = s.getCurrent()
		}
		if err != nil {
			return Selection{}, err
		}
		raw = b.Query
	}
	p, err := query.Parse(raw)
	if err != nil {
		return Selection{}, err
	}
	chain, err := s.browser.Restore(ctx, p)
	if err != nil {
		return Selection{}, err
	}
	return newSelection(chain), nil
}

func (s *Service) selectNode(ctx context.Context, key string) (Selection, error) {
	if key == "" {
		return Selection{}, errors.New("key is required")
	}
	node, err := s.browser.Select(ctx, key)
	if err != nil {
		return Selection{}, err
	}
	chain, ok := s.browser.Tree().Chain(node.Key())
	if !ok {
		return Selection{}, fmt.Errorf("select %s: %w", key, browser.ErrUnknownNode)
	}
	return newSelection(chain), nil
}

func (s *Service) tree() TreeView {
	st := s.browser.State()
	view := TreeView{
		Roots:    st.Tree.Roots(),
		Selected: st.Selected,
		Params:   st.Params,
		Query:    st.Params.Encode(),
	}
	if len(st.Errors) > 0 {
		view.Errors = make(map[string]string, len(st.Errors))
		for k, e := range st.Errors {
			view.Errors[k] = e.Error()
		}
	}
	for k := range st.Pending {
		view.Pending = append(view.Pending, k)
	}
	sort.Strings(view.Pending)
	return view
}

// newSelection strips children so replies stay small.
func newSelection(chain []geo.Node) Selection {
	out := make([]geo.Node, len(chain))
	for i, n := range chain {
		n.Children = nil
		out[i] = n
	}
	p := query.FromChain(chain)
	return Selection{Chain: out, Params: p, Query: p.Encode()}
}

// EnsureConfig ensures config exists at path.
func EnsureConfig(path string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, ".geo-tree", "config.yml")
	}
	if err := config.EnsureDefaultConfig(path); err != nil {
		return "", err
	}
	return path, nil
}
