package dom_test

import (
	"strings"
	"testing"

	"canvasx/dom"
)

const page = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
<div class="canvas-container">
  <div id="a"><div class="absolute top-0 left-0 w-fit h-fit"><p class="x  y">one</p></div></div>
  <div id="b"><span class="z">two</span></div>
</div>
</body></html>`

func mustParse(t *testing.T, s string) *dom.Element {
	t.Helper()
	root, err := dom.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return root
}

func mustCompile(t *testing.T, s string) *dom.Selector {
	t.Helper()
	sel, err := dom.Compile(s)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", s, err)
	}
	return sel
}

func TestQueryAll_DocumentOrder(t *testing.T) {
	root := mustParse(t, page)

	regions := root.QueryAll(mustCompile(t, ".canvas-container > div"))
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	for i, want := range []string{"a", "b"} {
		if id, _ := regions[i].Attr("id"); id != want {
			t.Errorf("region %d id = %q, want %q", i, id, want)
		}
	}
}

func TestQuery_ExcludesSelf(t *testing.T) {
	root := mustParse(t, page)
	sel := mustCompile(t, "div")

	regions := root.QueryAll(mustCompile(t, ".canvas-container > div"))
	// region "b" is a div itself but has no div descendants
	if got := regions[1].Query(sel); got != nil {
		t.Errorf("expected no match below region b, got <%s>", got.Tag())
	}
	if got := regions[0].Query(mustCompile(t, ".absolute.top-0.left-0.w-fit.h-fit")); got == nil {
		t.Error("expected content root below region a")
	}
}

func TestClasses(t *testing.T) {
	root := mustParse(t, page)
	p := root.Query(mustCompile(t, "p"))
	if p == nil {
		t.Fatal("expected <p>")
	}
	got := p.Classes()
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("Classes() = %v, want [x y]", got)
	}

	if got := root.Query(mustCompile(t, "title")).Classes(); got != nil {
		t.Errorf("expected no classes, got %v", got)
	}
}

func TestClasses_ASCIIWhitespace(t *testing.T) {
	el := dom.NewElement("div", "class", "\tw-[10px]\u00a0x\f p-2\r\nh-[1px]  ")
	got := el.Classes()
	want := []string{"w-[10px]\u00a0x", "p-2", "h-[1px]"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Classes() = %q, want %q", got, want)
	}
}

func TestChildren_ElementsOnly(t *testing.T) {
	root := mustParse(t, page)
	container := root.Query(mustCompile(t, ".canvas-container"))
	if n := len(container.Children()); n != 2 {
		t.Errorf("expected 2 element children, got %d", n)
	}
}

func TestClone_Detached(t *testing.T) {
	root := mustParse(t, page)
	p := root.Query(mustCompile(t, "p"))

	c := p.Clone()
	c.AppendText("!")
	c.AppendChild(dom.NewElement("b"))

	if out, err := c.Render(); err != nil || out != `<p class="x  y">one!<b></b></p>` {
		t.Errorf("clone render = %q, %v", out, err)
	}
	if out, _ := root.Render(); strings.Contains(out, "one!") || strings.Contains(out, "<b>") {
		t.Error("clone must be detached from source tree")
	}

	if v, _ := p.Attr("class"); v != "x  y" {
		t.Errorf("source attribute changed: %q", v)
	}
	if p.Text() != "one" {
		t.Errorf("source text changed: %q", p.Text())
	}
	if c.Text() != "one!" {
		t.Errorf("clone text = %q, want %q", c.Text(), "one!")
	}
}

func TestRender(t *testing.T) {
	el := dom.NewElement("div", "id", "canvas-1")
	style := dom.NewElement("style")
	style.AppendText(".a > .b { color: red; }")
	el.AppendChild(style)
	el.AppendChild(dom.NewElement("span", "class", "h-[120px]"))

	got, err := el.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<div id="canvas-1"><style>.a > .b { color: red; }</style><span class="h-[120px]"></span></div>`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestWalk_PreOrder(t *testing.T) {
	root := mustParse(t, `<div id="1"><div id="2"><div id="3"></div></div><div id="4"></div></div>`)
	top := root.Query(mustCompile(t, "div"))

	var ids []string
	top.Walk(func(e *dom.Element) bool {
		id, _ := e.Attr("id")
		ids = append(ids, id)
		return true
	})
	if got := strings.Join(ids, ","); got != "1,2,3,4" {
		t.Errorf("walk order = %s, want 1,2,3,4", got)
	}
}

func TestCompile_BadSelector(t *testing.T) {
	if _, err := dom.Compile("div >"); err == nil {
		t.Error("expected error for malformed selector")
	}
}
