package pipeline_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/pipeline"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	"github.com/sagernet/sing/common/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subscriptionBody = `{
	"dns": {
		"servers": [{"tag": "local", "address": "223.5.5.5", "detour": "Direct"}],
		"rules": [{"rule_set": ["Ads"], "server": "block"}, {"geosite": "cn", "server": "local"}]
	},
	"route": {"rules": [{"rule_set": ["Foo", "Bar"], "outbound": "🌏️主代理"}]},
	"log": {"level": "info"}
}`

func newOptions(t *testing.T, url string) runtime.RunOptions {
	t.Helper()
	opts := runtime.DefaultRunOptions()
	opts.SourceURL = url
	opts.OutputPath = filepath.Join(t.TempDir(), runtime.DefaultOutputPath)
	opts.Timeout = 2 * time.Second
	return opts
}

func readOutput(t *testing.T, path string) *document.Object {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := document.Decode(content)
	require.NoError(t, err)
	return doc
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRun_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(subscriptionBody))
	}))
	defer ts.Close()

	opts := newOptions(t, ts.URL)
	result, err := pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"compat"}, result.Modules)
	assert.Equal(t, opts.OutputPath, result.Path)
	assert.Greater(t, result.Bytes, 0)

	doc := readOutput(t, opts.OutputPath)
	dns, _ := doc.Lookup("dns")
	rules, _ := dns.List("rules")
	assert.Equal(t, `[{"rule_set":"Ads","server":"block"},{"server":"local","rule_set":"China-Site"}]`, mustJSON(t, rules))
	servers, _ := dns.List("servers")
	assert.Len(t, servers, 1, "no injection without the flag")

	content, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "🌏️主代理")
	// 顶层字段保持订阅中的顺序
	out := string(content)
	assert.Less(t, strings.Index(out, `"dns"`), strings.Index(out, `"route"`))
	assert.Less(t, strings.Index(out, `"route"`), strings.Index(out, `"log"`))
}

func TestRun_InjectDNS(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(subscriptionBody))
	}))
	defer ts.Close()

	opts := newOptions(t, ts.URL)
	opts.InjectDNS = true
	result, err := pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"compat", "dns_inject"}, result.Modules)
	assert.Equal(t, 5, result.Context.InjectedServers)

	doc := readOutput(t, opts.OutputPath)
	dns, _ := doc.Lookup("dns")
	servers, _ := dns.List("servers")
	assert.Len(t, servers, 6)
	rules, _ := dns.List("rules")
	require.Len(t, rules, 3)
	assert.Equal(t, `{"rule_set":"China-Site","server":"DNS-Domestic-URLTest"}`, mustJSON(t, rules[0]))
}

// 场景 C：没有订阅地址时直接失败，不发起请求
func TestRun_MissingSourceURL(t *testing.T) {
	opts := newOptions(t, "")

	_, err := pipeline.Run(context.Background(), opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrMissingSourceURL)
	assert.Equal(t, pipeline.ExitConfigError, pipeline.ExitCode(err))
	assert.NoFileExists(t, opts.OutputPath)
}

// 场景 B：拉取超时，保留上一次的输出
func TestRun_FetchTimeoutKeepsPreviousOutput(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	defer ts.Close()

	opts := newOptions(t, ts.URL)
	opts.Timeout = 100 * time.Millisecond
	previous := []byte(`{"previous": "run"}`)
	require.NoError(t, os.WriteFile(opts.OutputPath, previous, 0644))

	_, err := pipeline.Run(context.Background(), opts)

	require.Error(t, err)
	assert.Equal(t, pipeline.StageFetch, pipeline.StageOf(err))
	assert.Equal(t, pipeline.ExitOK, pipeline.ExitCode(err))
	assert.Equal(t, int32(1), hits.Load())

	content, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, string(previous), string(content))
}

func TestRun_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "forbidden", http.StatusForbidden)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"dns": `))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			opts := newOptions(t, ts.URL)
			_, err := pipeline.Run(context.Background(), opts)

			assert.Equal(t, pipeline.StageFetch, pipeline.StageOf(err))
			assert.Equal(t, pipeline.ExitOK, pipeline.ExitCode(err))
			assert.NoFileExists(t, opts.OutputPath)
		})
	}
}

func TestRun_WriteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	opts := newOptions(t, ts.URL)
	opts.OutputPath = filepath.Join(t.TempDir(), "no-such-dir", "out.json")

	_, err := pipeline.Run(context.Background(), opts)

	assert.Equal(t, pipeline.StageWrite, pipeline.StageOf(err))
	assert.Equal(t, pipeline.ExitFailure, pipeline.ExitCode(err))
}
