package config_test

import (
	"testing"

	"github.com/kyson-dev/sub-optimizer/internal/config"
	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyDNS(t *testing.T, doc *document.Object, detour string) *config.BuildContext {
	t.Helper()
	opts := runtime.DefaultRunOptions()
	ctx := config.NewBuildContext(&opts)
	require.NoError(t, (&config.DNSModule{ProxyDetour: detour}).Apply(doc, ctx))
	return ctx
}

func dnsList(t *testing.T, doc *document.Object, key string) []any {
	t.Helper()
	dns, ok := doc.Lookup("dns")
	require.True(t, ok)
	list, ok := dns.List(key)
	require.True(t, ok, "missing dns.%s", key)
	return list
}

func tagsOf(list []any, key string) []string {
	var tags []string
	for _, raw := range list {
		obj, ok := raw.(*document.Object)
		if !ok {
			continue
		}
		v, _ := obj.String(key)
		tags = append(tags, v)
	}
	return tags
}

func TestDNSModule_Inject(t *testing.T) {
	doc := mustDecode(t, `{
		"dns": {
			"servers": [
				{"tag": "local", "address": "223.5.5.5", "detour": "Direct"},
				{"tag": "DNS-Ali", "address": "stale"}
			],
			"rules": [
				{"rule_set": "Ads", "server": "block"},
				{"rule_set": "Old", "server": "DNS-Domestic-URLTest"}
			]
		}
	}`)

	ctx := applyDNS(t, doc, "Proxy")

	servers := dnsList(t, doc, "servers")
	assert.Equal(t, []string{
		"local",
		"DNS-Domestic-URLTest", "DNS-Ali", "DNS-DNSPod", "DNS-Baidu", "DNS-Foreign-Proxied",
	}, tagsOf(servers, "tag"))

	assert.Equal(t,
		`{"tag":"DNS-Domestic-URLTest","type":"urltest","servers":["DNS-Ali","DNS-DNSPod","DNS-Baidu"],"url":"https://www.baidu.com","interval":"10m"}`,
		mustJSON(t, servers[1]))
	assert.Equal(t,
		`{"tag":"DNS-Ali","address":"https://dns.alidns.com/dns-query","detour":"Direct"}`,
		mustJSON(t, servers[2]))
	assert.Equal(t,
		`{"tag":"DNS-Foreign-Proxied","address":"https://dns.google/dns-query","detour":"Proxy"}`,
		mustJSON(t, servers[5]))

	assert.Equal(t,
		`[{"rule_set":"China-Site","server":"DNS-Domestic-URLTest"},{"rule_set":"Ads","server":"block"}]`,
		mustJSON(t, dnsList(t, doc, "rules")))

	assert.Equal(t, 5, ctx.InjectedServers)
	assert.Equal(t, 1, ctx.InjectedRules)
}

func TestDNSModule_DefaultDetour(t *testing.T) {
	doc := mustDecode(t, `{"dns": {}}`)

	applyDNS(t, doc, "")

	servers := dnsList(t, doc, "servers")
	require.Len(t, servers, 5)
	detour, _ := servers[4].(*document.Object).String("detour")
	assert.Equal(t, "🌏️主代理", detour)
	// 没有 rules 时新建列表
	assert.Len(t, dnsList(t, doc, "rules"), 1)
}

func TestDNSModule_Idempotent(t *testing.T) {
	doc := mustDecode(t, `{"dns": {"servers": [{"tag": "local"}], "rules": [{"server": "local"}]}}`)

	applyDNS(t, doc, "Proxy")
	first := mustJSON(t, doc)
	applyDNS(t, doc, "Proxy")

	tags := tagsOf(dnsList(t, doc, "servers"), "tag")
	for _, reserved := range config.ReservedDNSTags() {
		count := 0
		for _, tag := range tags {
			if tag == reserved {
				count++
			}
		}
		assert.Equal(t, 1, count, "tag %s should appear once", reserved)
	}
	assert.Len(t, tags, 6)

	rules := dnsList(t, doc, "rules")
	assert.Equal(t, []string{"DNS-Domestic-URLTest", "local"}, tagsOf(rules, "server"))
	assert.Equal(t, first, mustJSON(t, doc))
}

func TestDNSModule_NoDNSSection(t *testing.T) {
	tests := []string{
		`{"route": {"rules": [{"rule_set": "Foo"}]}, "outbounds": [{"tag": "🌏️主代理"}]}`,
		`{"dns": null}`,
		`{"dns": ["not", "an", "object"]}`,
	}

	for _, content := range tests {
		doc := mustDecode(t, content)
		before := mustJSON(t, doc)

		ctx := applyDNS(t, doc, "Proxy")

		assert.Equal(t, before, mustJSON(t, doc))
		assert.Zero(t, ctx.InjectedServers)
	}
}

func TestDNSModule_NonObjectEntriesKept(t *testing.T) {
	doc := mustDecode(t, `{"dns": {"servers": ["weird"], "rules": [42]}}`)

	applyDNS(t, doc, "Proxy")

	servers := dnsList(t, doc, "servers")
	assert.Equal(t, "weird", servers[0])
	rules := dnsList(t, doc, "rules")
	require.Len(t, rules, 2)
	assert.Equal(t, "42", mustJSON(t, rules[1]))
}
