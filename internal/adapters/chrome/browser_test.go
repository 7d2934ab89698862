package chrome

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
	"github.com/bft-labs/penpal/pkg/log"
)

// chromeOrSkip launches a headless browser, skipping when none is installed.
func chromeOrSkip(t *testing.T) *Browser {
	t.Helper()
	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("chrome not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, err := NewBrowser(ctx, Options{Headless: true}, log.NewNoopLogger())
	if err != nil {
		t.Skipf("chrome failed to start: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBrowser_PageAndFrame(t *testing.T) {
	b := chromeOrSkip(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
			<p id="msg">hello<br>world</p>
			<a id="link" href="/next">next</a>
			<iframe id="fr" src="/frame"></iframe>
		</body></html>`)
	})
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><span id="anchor" aria-checked="false">x</span>
			<button id="btn" onclick="document.getElementById('anchor').setAttribute('aria-checked','true')">go</button>
		</body></html>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.Navigate(ctx, ts.URL+"/"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	msg, err := b.WaitPresent(ctx, "#msg", 5*time.Second)
	if err != nil {
		t.Fatalf("WaitPresent: %v", err)
	}
	if text, _ := msg.Text(ctx); text != "hello\nworld" {
		t.Errorf("Text = %q", text)
	}

	link, err := b.Find(ctx, "#link")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if href, _ := link.Attribute(ctx, "href"); href != ts.URL+"/next" {
		t.Errorf("href = %q", href)
	}

	if _, err := b.Find(ctx, "#missing"); !errors.Is(err, domain.ErrElementNotFound) {
		t.Errorf("Find missing err = %v", err)
	}
	if _, err := b.WaitPresent(ctx, "#missing", 200*time.Millisecond); !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("WaitPresent missing err = %v", err)
	}

	fr, err := b.WaitPresent(ctx, "#fr", 5*time.Second)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := b.SwitchToFrame(ctx, fr); err != nil {
		t.Fatalf("SwitchToFrame: %v", err)
	}
	btn, err := b.WaitClickable(ctx, "#btn", 5*time.Second)
	if err != nil {
		t.Fatalf("WaitClickable: %v", err)
	}
	if err := btn.Click(ctx, ports.ClickScripted); err != nil {
		t.Fatalf("Click: %v", err)
	}
	anchor, err := b.Find(ctx, "#anchor")
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if v, _ := anchor.Attribute(ctx, "aria-checked"); v != "true" {
		t.Errorf("aria-checked = %q", v)
	}
}

func TestBrowser_CloseIsIdempotent(t *testing.T) {
	b := chromeOrSkip(t)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Navigate(context.Background(), "about:blank"); !errors.Is(err, domain.ErrBrowserClosed) {
		t.Errorf("Navigate after Close err = %v", err)
	}
}
