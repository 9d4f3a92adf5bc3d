// Package export turns canvas regions of a page into a self-contained HTML
// document: canvas markup together with exactly the style rules it uses.
package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"canvasx/classes"
	"canvasx/config"
	"canvasx/css"
	"canvasx/dom"
	"canvasx/format"
	"canvasx/rules"
)

// Exporter exports canvases of a page. It keeps no state between calls and
// may be reused for any number of pages.
type Exporter struct {
	cfg     *config.ExportConfig
	canvas  *dom.Selector
	content *dom.Selector // nil when content root lookup is disabled
	log     *zap.Logger
}

// New prepares exporter, selectors from configuration are compiled here.
func New(cfg *config.ExportConfig, log *zap.Logger) (*Exporter, error) {
	if log == nil {
		log = zap.NewNop()
	}

	canvas, err := dom.Compile(cfg.CanvasSelector)
	if err != nil {
		return nil, fmt.Errorf("canvas selector: %w", err)
	}
	e := &Exporter{
		cfg:    cfg,
		canvas: canvas,
		log:    log.Named("export"),
	}
	if cfg.ContentRootSelector != "" {
		if e.content, err = dom.Compile(cfg.ContentRootSelector); err != nil {
			return nil, fmt.Errorf("content root selector: %w", err)
		}
	}
	return e, nil
}

// Export discovers canvas regions under root and exports each of them in
// document order using rules from styles. Depending on failure policy a
// canvas which cannot be exported either aborts the whole export or is
// replaced by a marker block, see Document.Err.
func (e *Exporter) Export(ctx context.Context, root *dom.Element, styles css.Source) (*Document, error) {
	regions := root.QueryAll(e.canvas)
	if len(regions) == 0 {
		e.log.Warn("No canvases found", zap.Stringer("selector", e.canvas))
	}

	doc := &Document{Blocks: make([]*Block, 0, len(regions))}
	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export interrupted: %w", err)
		}

		index := i + 1
		block, err := e.exportCanvas(index, region, styles)
		if err != nil {
			if e.cfg.OnCanvasError != config.FailurePolicyMark {
				return nil, fmt.Errorf("canvas %d: %w", index, err)
			}
			e.log.Warn("Unable to export canvas, marking", zap.Int("canvas", index), zap.Error(err))
			block = &Block{Index: index, Err: err}
		}
		doc.Blocks = append(doc.Blocks, block)
	}

	e.log.Debug("Export done", zap.Int("canvases", len(doc.Blocks)), zap.Int("failed", doc.Failed()))
	return doc, nil
}

func (e *Exporter) exportCanvas(index int, region *dom.Element, styles css.Source) (*Block, error) {
	content := region
	if e.content != nil {
		if r := region.Query(e.content); r != nil {
			content = r
		}
	}

	set, table := classes.NewSet(), classes.NewTable()
	children := content.Children()
	clones := make([]*dom.Element, 0, len(children))
	for _, child := range children {
		clone := child.Clone()
		classes.Collect(clone, set, table)
		clones = append(clones, clone)
	}

	retained, err := rules.Extract(styles, set, rules.Options{KeepGroups: e.cfg.KeepGroupContext}, e.log)
	if err != nil {
		return nil, fmt.Errorf("unable to extract style rules: %w", err)
	}
	synthesized := classes.Rules(table, e.cfg.AxisPairs == config.AxisPairsJoined)

	texts := make([]string, 0, retained.Len()+len(synthesized))
	texts = append(texts, retained.Texts()...)
	texts = append(texts, synthesized...)

	style := dom.NewElement("style")
	style.AppendText(format.CSS(texts))

	wrapper := dom.NewElement("div", "id", fmt.Sprintf("canvas-%d", index))
	wrapper.AppendChild(style)
	for _, clone := range clones {
		wrapper.AppendChild(clone)
	}

	markup, err := wrapper.Render()
	if err != nil {
		return nil, err
	}
	formatted, err := format.HTML(markup)
	if err != nil {
		return nil, fmt.Errorf("unable to format canvas markup: %w", err)
	}

	e.log.Debug("Canvas exported",
		zap.Int("canvas", index),
		zap.Int("classes", set.Len()),
		zap.Int("retained", retained.Len()),
		zap.Int("synthesized", len(synthesized)))

	return &Block{
		Index:       index,
		Markup:      formatted,
		Classes:     set.Tokens(),
		Synthesized: synthesized,
		Retained:    retained.Texts(),
	}, nil
}
