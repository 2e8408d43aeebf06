package thsr

import (
	"bytes"
	"context"
	"embed"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"thsr-booker/internal/components/console"
	"thsr-booker/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.html
var testdata embed.FS

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	contents, err := testdata.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return contents
}

func fixtureDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fixture(t, name)))
	require.NoError(t, err)
	return doc
}

func htmlDoc(t *testing.T, contents string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(contents))
	require.NoError(t, err)
	return doc
}

const (
	testSessionId = "abc123"
	captchaIface  = ":0:BookingS1Form:homeCaptcha:passCode::IResourceListener"
	searchIface   = ":0:BookingS1Form::IFormSubmitListener"
	trainIface    = ":1:BookingS2Form::IFormSubmitListener"
	ticketIface   = ":2:BookingS3Form::IFormSubmitListener"
)

var captchaImage = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

// fakeSite serves the booking pages from testdata and records every form body it receives,
// keyed by the wicket interface the form was posted to.
type fakeSite struct {
	t *testing.T

	// responses to each submission, defaults to the happy path fixtures
	searchResponse  string
	trainResponse   string
	confirmResponse string
	// withoutSession serves the booking page without a session cookie
	withoutSession bool

	mu       sync.Mutex
	bodies   map[string]string
	paths    map[string]string
	sessions map[string]string
}

func newFakeSite(t *testing.T) *fakeSite {
	return &fakeSite{
		t:               t,
		searchResponse:  "trains.html",
		trainResponse:   "confirm.html",
		confirmResponse: "result.html",
		bodies:          map[string]string{},
		paths:           map[string]string{},
		sessions:        map[string]string{},
	}
}

func (s *fakeSite) body(iface string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[iface]
}

func (s *fakeSite) session(iface string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[iface]
}

func (s *fakeSite) path(iface string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[iface]
}

func (s *fakeSite) form(iface string) url.Values {
	values, err := url.ParseQuery(s.body(iface))
	require.NoError(s.t, err)
	return values
}

func (s *fakeSite) page(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html;charset=UTF-8")
	w.Write(fixture(s.t, name))
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	iface := r.URL.Query().Get("wicket:interface")

	if r.Method == http.MethodGet {
		switch iface {
		case "":
			if !s.withoutSession {
				http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: testSessionId, Path: "/IMINT"})
			}
			s.page(w, "search.html")
		case captchaIface:
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(captchaImage)
		default:
			http.NotFound(w, r)
		}
		return
	}

	var session string
	if cookie, err := r.Cookie("JSESSIONID"); err == nil {
		session = cookie.Value
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.bodies[iface] = string(body)
	s.paths[iface] = r.URL.Path
	s.sessions[iface] = session
	s.mu.Unlock()

	switch iface {
	case searchIface:
		s.page(w, s.searchResponse)
	case trainIface:
		s.page(w, s.trainResponse)
	case ticketIface:
		s.page(w, s.confirmResponse)
	default:
		http.NotFound(w, r)
	}
}

type testBooking struct {
	site   *fakeSite
	server *httptest.Server
	prompt *console.Scripted
	rec    *telemetry.Recorder
	client *Client
}

func newTestBooking(t *testing.T, site *fakeSite, answers ...string) testBooking {
	t.Helper()
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	prompt := console.NewScripted(answers...)
	rec := &telemetry.Recorder{}
	client := newTestClient(t, server.URL, prompt, rec)

	return testBooking{site: site, server: server, prompt: prompt, rec: rec, client: client}
}

func newTestClient(t *testing.T, baseUrl string, prompt Prompter, rec *telemetry.Recorder) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseUrl: baseUrl,
		Prompt:  prompt,
		Captcha: CaptchaSolverFunc(func(_ context.Context, image []byte) (string, error) {
			require.Equal(t, captchaImage, image)
			return "ABCD", nil
		}),
		Tel: rec,
	})
	require.NoError(t, err)
	return client
}

func ptr[T any](v T) *T {
	return &v
}
