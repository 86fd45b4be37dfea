package websearch

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurogo/knowledge"
)

const snippetPage = `<html><body>
<div class="kno-rdesc"><span>curta</span></div>
<div class="LGOjhe"><span>Paris é a capital e a cidade mais populosa da França.</span></div>
</body></html>`

const resultsPage = `<html><body>
<div class="g tF2Cxc"><h3>Python</h3><div class="VwiC3b">Python é uma linguagem de programação de alto nível.</div></div>
<div class="g tF2Cxc"><h3>Curto</h3><div class="VwiC3b">pouco texto</div></div>
<div class="g tF2Cxc"><h3>Wikipédia</h3><div class="VwiC3b">Linguagem criada por Guido van Rossum em 1991.</div></div>
<div class="g tF2Cxc"><h3>Quarto</h3><div class="VwiC3b">Este resultado não entra porque só os três primeiros contam.</div></div>
</body></html>`

func TestSearchTerms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"o que é python", "python definição"},
		{"como fazer bolo de cenoura", "fazer bolo cenoura tutorial"},
		{"quando começou a segunda guerra mundial", "comecou segunda guerra mundial data"},
		{"quem é Ada Lovelace", "é Ada Lovelace"},
		{"pesquise sobre a história da computação e da internet no brasil moderno", "sobre historia computacao internet brasil"},
		{"capital da frança", "capital da frança"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SearchTerms(tc.in), tc.in)
	}
}

func TestExtractPrefersSnippet(t *testing.T) {
	text, combined, ok, err := extract(strings.NewReader(snippetPage))
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, combined)
	assert.Equal(t, "Paris é a capital e a cidade mais populosa da França.", text)
}

func TestExtractCombinesResults(t *testing.T) {
	text, combined, ok, err := extract(strings.NewReader(resultsPage))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, combined)
	assert.Equal(t, "Python: Python é uma linguagem de programação de alto nível.\n\n"+
		"Wikipédia: Linguagem criada por Guido van Rossum em 1991.", text)

	_, _, ok, err = extract(strings.NewReader(`<html><body><p>nada</p></body></html>`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchAgainstServer(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.UserAgent()
		w.Write([]byte(snippetPage))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithUserAgent("kuro-test"))
	ans, err := c.Search(context.Background(), "o que é a capital da frança")
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine, ans.Source)
	assert.Contains(t, ans.Text, "Paris")
	assert.Equal(t, "a capital da frança definição", gotQuery)
	assert.Equal(t, "kuro-test", gotUA)
}

func TestSearchSourceNamesEngine(t *testing.T) {
	page := snippetPage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithEngine("bing"))
	ans, err := c.Search(context.Background(), "o que é a capital da frança")
	require.NoError(t, err)
	assert.Equal(t, "bing", ans.Source)

	page = resultsPage
	ans, err = c.Search(context.Background(), "o que é python")
	require.NoError(t, err)
	assert.Equal(t, "bing_search", ans.Source)
}

func TestSearchCachesMisses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`<html><body>vazio</body></html>`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "zzz inexistente")
		assert.ErrorIs(t, err, ErrNoResults)
	}
	assert.Equal(t, int32(1), hits.Load())

	uncached := New(WithBaseURL(srv.URL), WithNegativeTTL(0))
	_, _ = uncached.Search(context.Background(), "zzz inexistente")
	_, _ = uncached.Search(context.Background(), "zzz inexistente")
	assert.Equal(t, int32(3), hits.Load())
}

func TestSearchNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Search(context.Background(), "capital da frança")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, knowledge.ErrNetwork)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	_, err = New(WithBaseURL(slow.URL), WithTimeout(50*time.Millisecond)).Search(context.Background(), "capital da frança")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))

	srv.Close()
	_, err = New(WithBaseURL(srv.URL)).Search(context.Background(), "capital da frança")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFormat(t *testing.T) {
	c := New(WithRand(rand.New(rand.NewPCG(1, 2))))

	short := c.Format("Paris.")
	assert.True(t, strings.HasSuffix(short, "Paris."))
	assert.Contains(t, intros, strings.TrimSuffix(short, "Paris."))

	sentence := strings.Repeat("a", 350) + "." + strings.Repeat("b", 300)
	out := c.Format(sentence)
	assert.True(t, strings.HasSuffix(out, strings.Repeat("a", 350)+"."))

	noStop := strings.Repeat("é", 600)
	out = c.Format(noStop)
	assert.True(t, strings.HasSuffix(out, strings.Repeat("é", 500)+"..."))

	early := strings.Repeat("a", 100) + "." + strings.Repeat("b", 500)
	out = c.Format(early)
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 399)+"..."))
}
