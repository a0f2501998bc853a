package config

import (
	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
	C "github.com/sagernet/sing-box/constant"
	"github.com/sagernet/sing/common"
)

const (
	urlTestProbeURL = "https://www.baidu.com"
	urlTestInterval = "10m"
)

// DNSModule 注入一组并行测速的国内 DNS 和一个走代理的国外 DNS
// 重复执行结果不变：同名服务器和指向测速组的规则会先被移除
type DNSModule struct {
	// ProxyDetour 国外 DNS 的出站 tag，需要与引擎配置中的代理选择器一致
	ProxyDetour string
}

func (m *DNSModule) Name() string {
	return "dns_inject"
}

func (m *DNSModule) Apply(doc *document.Object, ctx *BuildContext) error {
	logger.Info("Injecting DNS optimization...")

	dns, ok := doc.Lookup("dns")
	if !ok {
		logger.Warn("Subscription has no dns section, skipping DNS injection")
		return nil
	}

	// 1. 替换保留 tag 的服务器
	existing, _ := dns.List("servers")
	servers := common.Filter(existing, func(it any) bool {
		server, ok := it.(*document.Object)
		if !ok {
			return true
		}
		tag, _ := server.String("tag")
		return !IsReservedDNSTag(tag)
	})
	injected := m.servers()
	dns.Put("servers", append(servers, injected...))
	ctx.InjectedServers = len(injected)
	logger.Info("DNS servers injected", "count", len(injected))

	// 2. 测速组规则放到最前面
	existingRules, _ := dns.List("rules")
	rules := common.Filter(existingRules, func(it any) bool {
		rule, ok := it.(*document.Object)
		if !ok {
			return true
		}
		server, _ := rule.String("server")
		return server != TagDomesticURLTest
	})
	dns.Put("rules", append([]any{chinaSiteRule()}, rules...))
	ctx.InjectedRules = 1
	logger.Info("Domestic DNS rule inserted at top", "server", TagDomesticURLTest)

	return nil
}

// servers 每次返回新的对象，避免多次注入共享同一实例
func (m *DNSModule) servers() []any {
	detour := m.ProxyDetour
	if detour == "" {
		detour = runtime.DefaultProxyDetour
	}
	return []any{
		document.NewObject().
			With("tag", TagDomesticURLTest).
			With("type", C.TypeURLTest).
			With("servers", []any{TagAliDNS, TagDNSPod, TagBaiduDNS}).
			With("url", urlTestProbeURL).
			With("interval", urlTestInterval),
		directServer(TagAliDNS, "https://dns.alidns.com/dns-query"),
		directServer(TagDNSPod, "https://doh.pub/dns-query"),
		directServer(TagBaiduDNS, "https://doh.360.cn"),
		document.NewObject().
			With("tag", TagForeignProxied).
			With("address", "https://dns.google/dns-query").
			With("detour", detour),
	}
}

func directServer(tag, address string) *document.Object {
	return document.NewObject().
		With("tag", tag).
		With("address", address).
		With("detour", DetourDirect)
}

func chinaSiteRule() *document.Object {
	return document.NewObject().
		With("rule_set", RuleSetChinaSite).
		With("server", TagDomesticURLTest)
}
