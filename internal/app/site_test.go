package app

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/bft-labs/penpal/internal/adapters/static"
	"github.com/bft-labs/penpal/internal/audio"
	"github.com/bft-labs/penpal/internal/domain"
)

const (
	testUser = "alice"
	testPass = "s3cret"
)

// person is one directory entry served by fakeSite.
type person struct {
	Name  string
	ID    string
	Line1 string
	Line2 string
	City  string
	State string
	Zip   string

	// Broken detail pages have no contact panel.
	Broken bool
	// OneAnchor renders the listing row without the thumbnail link.
	OneAnchor bool
}

type siteSession struct {
	clicked  bool
	verified bool
	loggedIn bool
}

// fakeSite serves a login form guarded by a checkbox captcha with an audio
// fallback, paginated listings and detail pages.
type fakeSite struct {
	t *testing.T

	AutoApprove  bool
	Answer       string
	RequireLogin bool
	Pages        [][]person
	// FailPage makes page i render without rows for the given number of loads.
	FailPage map[int]int
	// NextOverride replaces the next link of page i.
	NextOverride map[int]string

	mu            sync.Mutex
	sessions      map[string]*siteSession
	seq           int
	loginLoads    int
	audioRequests int
	pageLoads     map[int]int

	wav []byte
	srv *httptest.Server
}

func newFakeSite(t *testing.T, configure func(*fakeSite)) *fakeSite {
	t.Helper()
	s := &fakeSite{
		t:         t,
		Answer:    "seven four two",
		sessions:  make(map[string]*siteSession),
		pageLoads: make(map[int]int),
	}
	if configure != nil {
		configure(s)
	}
	s.wav = testWAV(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", s.handleLogin)
	mux.HandleFunc("GET /recaptcha/anchor", s.handleAnchor)
	mux.HandleFunc("/recaptcha/bframe", s.handleChallenge)
	mux.HandleFunc("POST /recaptcha/verify", s.handleVerify)
	mux.HandleFunc("GET /recaptcha/audio.wav", s.handleAudio)
	mux.HandleFunc("GET /penpals", s.handleListing)
	mux.HandleFunc("GET /p/{id}", s.handleDetail)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeSite) LoginURL() string { return s.srv.URL + "/user/login" }
func (s *fakeSite) BaseURL() string  { return s.srv.URL + "/penpals" }

// Client returns a cookie-aware client bound to the site.
func (s *fakeSite) Client() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		s.t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// Browser returns a static browser with its own session.
func (s *fakeSite) Browser() (*static.Browser, *http.Client) {
	client := s.Client()
	return static.NewBrowser(client, mockLogger{}), client
}

func (s *fakeSite) LoginLoads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLoads
}

func (s *fakeSite) AudioRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioRequests
}

func (s *fakeSite) PageLoads(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLoads[i]
}

// session returns the caller's session, issuing a cookie on first contact.
// Callers hold s.mu.
func (s *fakeSite) session(w http.ResponseWriter, r *http.Request) *siteSession {
	if c, err := r.Cookie("sid"); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			return sess
		}
	}
	s.seq++
	id := strconv.Itoa(s.seq)
	sess := &siteSession{}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{Name: "sid", Value: id, Path: "/"})
	return sess
}

func (s *fakeSite) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		solved := sess.verified || (s.AutoApprove && sess.clicked)
		if solved && r.PostForm.Get("name") == testUser && r.PostForm.Get("pass") == testPass {
			sess.loggedIn = true
			http.Redirect(w, r, "/penpals", http.StatusSeeOther)
			return
		}
	} else {
		s.loginLoads++
		// A fresh login page resets the widget.
		sess.clicked, sess.verified = false, false
	}

	fmt.Fprint(w, `<html><body>
<form id="user-login-form" method="post" action="/user/login">
  <input id="edit-name" name="name" type="text">
  <input id="edit-pass" name="pass" type="password">
  <fieldset><iframe title="reCAPTCHA" src="/recaptcha/anchor"></iframe></fieldset>
  <button id="edit-submit" type="submit" name="op" value="Log in">Log in</button>
</form>`)
	if !s.AutoApprove {
		fmt.Fprint(w, `<div><iframe title="recaptcha challenge expires in two minutes" src="/recaptcha/bframe"></iframe></div>`)
	}
	fmt.Fprint(w, `</body></html>`)
}

func (s *fakeSite) handleAnchor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	if r.URL.Query().Get("click") == "1" {
		sess.clicked = true
	}
	checked := sess.verified || (s.AutoApprove && sess.clicked)
	fmt.Fprintf(w, `<html><body><span id="recaptcha-anchor" role="checkbox" aria-checked="%t">
<a class="recaptcha-checkbox-border" href="/recaptcha/anchor?click=1"></a></span></body></html>`, checked)
}

func (s *fakeSite) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		fmt.Fprint(w, `<html><body>
<audio id="audio-source" src="/recaptcha/audio.wav"></audio>
<form method="post" action="/recaptcha/verify">
  <input id="audio-response" name="response" type="text">
  <button id="recaptcha-verify-button" type="submit">Verify</button>
</form></body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body><form method="post" action="/recaptcha/bframe">
<button id="recaptcha-audio-button" type="submit" name="audio" value="1">Get an audio challenge</button>
</form></body></html>`)
}

func (s *fakeSite) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sess.clicked && strings.EqualFold(strings.TrimSpace(r.PostForm.Get("response")), s.Answer) {
		sess.verified = true
		fmt.Fprint(w, `<html><body>ok</body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body><div class="rc-audiochallenge-error-message">Multiple correct solutions required</div></body></html>`)
}

func (s *fakeSite) handleAudio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.audioRequests++
	s.mu.Unlock()
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(s.wav)
}

func (s *fakeSite) handleListing(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	s.pageLoads[page]++

	fmt.Fprint(w, `<html><body><div class="view-content">`)
	switch {
	case s.RequireLogin && !sess.loggedIn:
		fmt.Fprint(w, `<p>Access denied</p>`)
	case s.FailPage[page] > 0:
		s.FailPage[page]--
		fmt.Fprint(w, `<p>Temporarily unavailable</p>`)
	case page < len(s.Pages):
		for _, p := range s.Pages[page] {
			href := "/p/" + p.ID
			fmt.Fprint(w, `<div class="religion-prison-pen-pals-row views-row">`)
			if !p.OneAnchor {
				fmt.Fprintf(w, `<a href="%s"><img src="/thumb.png"></a>`, href)
			}
			fmt.Fprintf(w, `<a href="%s"> %s </a></div>`, href, html.EscapeString(p.Name))
		}
	}
	fmt.Fprint(w, `</div>`)

	next := ""
	if page+1 < len(s.Pages) {
		next = "/penpals?page=" + strconv.Itoa(page+1)
	}
	if o, ok := s.NextOverride[page]; ok {
		next = o
	}
	if next != "" {
		fmt.Fprintf(w, `<ul class="pager"><li class="prev"><a href="#">prev</a></li><li class="next"><a href="%s">next</a></li></ul>`, next)
	}
	fmt.Fprint(w, `</body></html>`)
}

func (s *fakeSite) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	var found *person
	for _, page := range s.Pages {
		for i := range page {
			if page[i].ID == id {
				found = &page[i]
			}
		}
	}
	if found == nil {
		http.NotFound(w, r)
		return
	}
	if found.Broken {
		fmt.Fprint(w, `<html><body><p>Profile unavailable</p></body></html>`)
		return
	}
	fmt.Fprint(w, renderDetail(*found))
}

func renderDetail(p person) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div class="tablewrapper penpal-contact-table"><table><tbody>
<tr><td>%s</td></tr>
<tr><td>Contact</td></tr>
<tr><td>#%s<br>State Correctional Institution</td></tr>
<tr><td><div class="notranslate"><p class="address">
<span class="address-line1">%s</span><br>`, html.EscapeString(p.Name), p.ID, html.EscapeString(p.Line1))
	if p.Line2 != "" {
		fmt.Fprintf(&b, `<span class="address-line2">%s</span><br>`, html.EscapeString(p.Line2))
	}
	fmt.Fprintf(&b, `<span class="locality">%s</span>, <span class="administrative-area">%s</span> <span class="postal-code">%s</span>
</p></div></td></tr></tbody></table></div></body></html>`, p.City, p.State, p.Zip)
	return b.String()
}

// testWAV encodes a short mono 8 kHz tone.
func testWAV(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenge.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	data := make([]int, 800)
	for i := range data {
		data[i] = (i%40 - 20) * 500
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return raw
}

// fakeTranscriber returns queued results in order, repeating the last one.
type fakeTranscriber struct {
	mu      sync.Mutex
	results []transcription
	calls   int
	rates   []int
}

type transcription struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.rates = append(f.rates, clip.SampleRate)
	if len(f.results) == 0 {
		return "", domain.ErrUnrecognized
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.text, r.err
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// samplePeople returns n distinct entries with ids starting at base.
func samplePeople(base, n int) []person {
	out := make([]person, 0, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(base + i)
		out = append(out, person{
			Name:  "John" + id + " Q Smith" + id,
			ID:    "A" + id,
			Line1: id + " Main St",
			City:  "Springfield",
			State: "IL",
			Zip:   "62701",
		})
	}
	return out
}
