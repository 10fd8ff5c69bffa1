package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/internal/config"
)

const page = `<!doctype html>
<html>
<head><title>MultiversX</title><style>body { color: red }</style></head>
<body>
  <nav><a href="/">Home</a><a href="/about">About</a></nav>
  <script>window.track("x")</script>
  <main>
    <h1>The   Internet   Scale
      Blockchain</h1>
    <!-- hero -->
    <p>Adaptive <b>state</b> sharding.</p>
    <noscript>Enable JS</noscript>
  </main>
  <footer>© MultiversX</footer>
</body>
</html>`

func TestExtractTextStripsNonContent(t *testing.T) {
	text, err := ExtractText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "The Internet Scale Blockchain Adaptive state sharding.", text)
}

func TestExtractTextWithoutBody(t *testing.T) {
	text, err := ExtractText(strings.NewReader("just   some\n text"))
	require.NoError(t, err)
	assert.Equal(t, "just some text", text)

	text, err = ExtractText(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFetcherFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain\n\n text"))
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<body><p>Caf\xe9 \xabstaking\xbb</p></body>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(&config.CorpusConfig{UserAgent: "mvx-assistant/1"})

	text, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, text, "Adaptive state sharding.")
	assert.NotContains(t, text, "Home")
	assert.Equal(t, "mvx-assistant/1", gotUA)

	text, err = f.Fetch(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain text", text)

	text, err = f.Fetch(context.Background(), srv.URL+"/latin1")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, "Caf staking", text)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.Fetch(context.Background(), "://bad-url")
	assert.Error(t, err)
}

func TestFetcherHonorsBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	text, err := NewFetcher(&config.CorpusConfig{MaxBodyBytes: 10}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, text, 10)
}
