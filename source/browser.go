package source

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"canvasx/config"
	"canvasx/css"
	"canvasx/dom"
)

//go:embed snapshot.js
var snapshotJS string

// Browser loads live pages. Browser is started (or connected to) on first
// use and stays up until Close, so any number of pages could be loaded.
type Browser struct {
	cfg           *config.BrowserConfig
	followImports bool
	log           *zap.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser returns live page loader.
func NewBrowser(cfg *config.BrowserConfig, followImports bool, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Browser{
		cfg:           cfg,
		followImports: followImports,
		log:           log.Named("browser"),
	}
}

func (b *Browser) connect() error {
	if b.browser != nil {
		return nil
	}

	var wsURL string
	if b.cfg.RemoteURL != "" {
		wsURL = string(b.cfg.RemoteURL)
		b.log.Debug("Connecting to remote browser")
	} else {
		l := launcher.New().Headless(b.cfg.Headless)
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("unable to launch browser: %w", err)
		}
		wsURL, b.launcher = u, l
		b.log.Debug("Browser launched", zap.Bool("headless", b.cfg.Headless))
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.cleanup()
		return fmt.Errorf("unable to connect to browser: %w", err)
	}
	b.browser = br
	return nil
}

// Load opens url in a new tab, waits for it to load and settle and takes a
// snapshot of the document and its style sheets.
func (b *Browser) Load(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.connect(); err != nil {
		return nil, err
	}

	tab, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("unable to open browser tab: %w", err)
	}
	defer tab.Close()

	page := tab.Context(ctx).Timeout(b.cfg.Timeout)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("unable to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not load: %w", err)
	}

	// scripts keep building canvases after load event
	if b.cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.cfg.Settle):
		}
	}

	res, err := page.Eval(snapshotJS, b.followImports)
	if err != nil {
		return nil, fmt.Errorf("unable to take page snapshot: %w", err)
	}

	root, src, err := decodeSnapshot([]byte(res.Value.Str()))
	if err != nil {
		return nil, err
	}
	for _, sheet := range src {
		if _, err := sheet.Rules(); err != nil {
			b.log.Debug("Style sheet is not readable from page", zap.String("sheet", sheet.Name()), zap.Error(err))
		}
	}
	b.log.Debug("Page loaded", zap.String("url", url), zap.Int("sheets", len(src)))
	return &Page{Name: url, Root: root, Styles: src}, nil
}

// Close shuts down launched browser or disconnects from remote one.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	b.cleanup()
	return err
}

func (b *Browser) cleanup() {
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
}

type (
	snapshot struct {
		HTML   string          `json:"html"`
		Sheets []snapshotSheet `json:"sheets"`
	}

	snapshotSheet struct {
		Name  string         `json:"name"`
		Error string         `json:"error,omitempty"`
		Rules []snapshotRule `json:"rules"`
	}

	snapshotRule struct {
		Type     string         `json:"type"` // "style" or "group"
		Selector string         `json:"selector,omitempty"`
		Text     string         `json:"text,omitempty"`
		Prelude  string         `json:"prelude,omitempty"`
		Rules    []snapshotRule `json:"rules,omitempty"`
	}
)

// decodeSnapshot converts page snapshot produced by snapshot script.
func decodeSnapshot(data []byte) (*dom.Element, css.Source, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("unable to decode page snapshot: %w", err)
	}
	if snap.HTML == "" {
		return nil, nil, errors.New("page snapshot has no document")
	}

	root, err := dom.Parse(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, nil, err
	}

	src := make(css.Source, 0, len(snap.Sheets))
	for _, s := range snap.Sheets {
		if s.Error != "" {
			src = append(src, &css.Inaccessible{Href: s.Name, Cause: errors.New(s.Error)})
			continue
		}
		src = append(src, &css.Stylesheet{Href: s.Name, Items: decodeRules(s.Rules)})
	}
	return root, src, nil
}

func decodeRules(in []snapshotRule) []css.StylesheetItem {
	items := make([]css.StylesheetItem, 0, len(in))
	for _, r := range in {
		switch r.Type {
		case "style":
			items = append(items, css.StylesheetItem{Rule: &css.Rule{Selector: r.Selector, Text: r.Text}})
		case "group":
			items = append(items, css.StylesheetItem{Group: &css.Group{Prelude: r.Prelude, Items: decodeRules(r.Rules)}})
		}
	}
	return items
}
