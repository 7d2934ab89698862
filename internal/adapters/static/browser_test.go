package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
	"github.com/bft-labs/penpal/pkg/log"
)

func newTestBrowser(t *testing.T, h http.Handler) (*Browser, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := ts.Client()
	client.Jar = jar
	return NewBrowser(client, log.NewNoopLogger()), ts
}

func TestBrowser_NavigateFindText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
			<table class="t"><tbody>
				<tr><td>Name</td></tr>
				<tr><td>x</td></tr>
				<tr><td>  #12345<br>Central   Unit </td></tr>
			</tbody></table>
			<a class="rel" href="/next?page=2">next</a>
		</body></html>`)
	})
	b, ts := newTestBrowser(t, mux)
	ctx := context.Background()

	if err := b.Navigate(ctx, ts.URL+"/"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	cell, err := b.Find(ctx, ".t tbody tr:nth-child(3) td:first-child")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	text, _ := cell.Text(ctx)
	if text != "#12345\nCentral Unit" {
		t.Errorf("Text = %q", text)
	}

	a, err := b.Find(ctx, "a.rel")
	if err != nil {
		t.Fatalf("Find link: %v", err)
	}
	href, _ := a.Attribute(ctx, "href")
	if href != ts.URL+"/next?page=2" {
		t.Errorf("href = %q, want absolute URL", href)
	}

	if _, err := b.Find(ctx, ".missing"); !errors.Is(err, domain.ErrElementNotFound) {
		t.Errorf("Find missing err = %v, want ErrElementNotFound", err)
	}
	if _, err := b.WaitPresent(ctx, ".missing", time.Second); !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("WaitPresent missing err = %v, want ErrTimeout", err)
	}
}

func TestBrowser_ClickLinkAndFormPost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("name") == "alice" && r.PostForm.Get("pass") == "pw" && r.PostForm.Get("op") == "Log in" {
				http.SetCookie(w, &http.Cookie{Name: "sess", Value: "ok", Path: "/"})
				http.Redirect(w, r, "/home", http.StatusSeeOther)
				return
			}
		}
		io.WriteString(w, `<form id="f" method="post" action="/login">
			<input id="edit-name" name="name">
			<input id="edit-pass" name="pass" type="password">
			<input type="checkbox" name="remember" value="1">
			<button id="edit-submit" name="op" value="Log in">Log in</button>
		</form>`)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sess")
		if err != nil || c.Value != "ok" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		io.WriteString(w, `<p id="hello">welcome</p><a id="away" href="other">other</a>`)
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<p id="other">other page</p>`)
	})

	b, ts := newTestBrowser(t, mux)
	ctx := context.Background()

	if err := b.Navigate(ctx, ts.URL+"/login"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	name, _ := b.Find(ctx, "#edit-name")
	pass, _ := b.Find(ctx, "#edit-pass")
	if err := name.SendKeys(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := pass.SendKeys(ctx, "pw"); err != nil {
		t.Fatal(err)
	}
	submit, err := b.WaitClickable(ctx, "#edit-submit", time.Second)
	if err != nil {
		t.Fatalf("WaitClickable: %v", err)
	}
	if err := submit.Click(ctx, ports.ClickDirect); err != nil {
		t.Fatalf("Click submit: %v", err)
	}

	cur, _ := b.CurrentURL(ctx)
	if cur != ts.URL+"/home" {
		t.Fatalf("CurrentURL = %q, want /home", cur)
	}
	if _, err := b.Find(ctx, "#hello"); err != nil {
		t.Fatalf("home page not loaded: %v", err)
	}

	away, _ := b.Find(ctx, "#away")
	if err := away.Click(ctx, ports.ClickPointer); err != nil {
		t.Fatalf("Click link: %v", err)
	}
	if _, err := b.Find(ctx, "#other"); err != nil {
		t.Errorf("link not followed: %v", err)
	}
}

func TestBrowser_Frames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<div id="top">top</div><iframe id="fr" src="/frame"></iframe>`)
	})
	clicked := false
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<a id="inner" href="/frame2">go</a>`)
	})
	mux.HandleFunc("/frame2", func(w http.ResponseWriter, r *http.Request) {
		clicked = true
		io.WriteString(w, `<span id="done" aria-checked="true"></span>`)
	})

	b, ts := newTestBrowser(t, mux)
	ctx := context.Background()
	if err := b.Navigate(ctx, ts.URL+"/"); err != nil {
		t.Fatal(err)
	}

	fr, err := b.WaitPresent(ctx, "#fr", time.Second)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := b.SwitchToFrame(ctx, fr); err != nil {
		t.Fatalf("SwitchToFrame: %v", err)
	}
	if _, err := b.Find(ctx, "#top"); err == nil {
		t.Error("top-level element visible from inside frame")
	}

	inner, err := b.Find(ctx, "#inner")
	if err != nil {
		t.Fatalf("inner: %v", err)
	}
	if err := inner.Click(ctx, ports.ClickScripted); err != nil {
		t.Fatalf("click in frame: %v", err)
	}
	if !clicked {
		t.Fatal("frame link not followed")
	}
	done, err := b.Find(ctx, "#done")
	if err != nil {
		t.Fatalf("frame navigation did not keep focus: %v", err)
	}
	if v, _ := done.Attribute(ctx, "aria-checked"); v != "true" {
		t.Errorf("aria-checked = %q", v)
	}
	cur, _ := b.CurrentURL(ctx)
	if cur != ts.URL+"/" {
		t.Errorf("frame navigation changed top-level URL to %q", cur)
	}

	if err := b.SwitchToDefault(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Find(ctx, "#top"); err != nil {
		t.Errorf("top-level not restored: %v", err)
	}
}

func TestBrowser_WaitClickableHidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<div style="display: none"><iframe id="hidden" src="/x"></iframe></div>
			<button id="off" disabled>off</button>`)
	})
	b, ts := newTestBrowser(t, mux)
	ctx := context.Background()
	if err := b.Navigate(ctx, ts.URL+"/"); err != nil {
		t.Fatal(err)
	}

	for _, sel := range []string{"#hidden", "#off"} {
		if _, err := b.WaitClickable(ctx, sel, time.Second); !errors.Is(err, domain.ErrTimeout) {
			t.Errorf("WaitClickable(%s) err = %v, want ErrTimeout", sel, err)
		}
		if _, err := b.WaitPresent(ctx, sel, time.Second); err != nil {
			t.Errorf("WaitPresent(%s) err = %v", sel, err)
		}
	}
}

func TestBrowser_Closed(t *testing.T) {
	b, ts := newTestBrowser(t, http.NotFoundHandler())
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	err := b.Navigate(context.Background(), ts.URL)
	if !errors.Is(err, domain.ErrBrowserClosed) {
		t.Fatalf("Navigate after Close err = %v", err)
	}
}

func TestFormValues(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("q") {
			got = r.URL.RawQuery
		}
		fmt.Fprint(w, `<form action="/">
			<input name="q" value="a b">
			<input type="checkbox" name="c1" value="x" checked>
			<input type="checkbox" name="c2" value="y">
			<select name="s"><option value="1">one</option><option value="2" selected>two</option></select>
			<input name="d" disabled value="no">
			<input type="submit" id="go">
		</form>`)
	})
	b, ts := newTestBrowser(t, mux)
	ctx := context.Background()
	if err := b.Navigate(ctx, ts.URL+"/"); err != nil {
		t.Fatal(err)
	}
	goBtn, _ := b.Find(ctx, "#go")
	if err := goBtn.Click(ctx, ports.ClickDirect); err != nil {
		t.Fatal(err)
	}
	if got != "c1=x&q=a+b&s=2" {
		t.Errorf("query = %q", got)
	}
}
