package config

// 规则集与 DNS 服务器 tag
const (
	RuleSetChinaSite = "China-Site"
	GeositeChina     = "cn"

	TagDomesticURLTest = "DNS-Domestic-URLTest"
	TagAliDNS          = "DNS-Ali"
	TagDNSPod          = "DNS-DNSPod"
	TagBaiduDNS        = "DNS-Baidu"
	TagForeignProxied  = "DNS-Foreign-Proxied"

	// DetourDirect 国内 DNS 使用的直连出站
	DetourDirect = "Direct"
)

var reservedDNSTags = map[string]bool{
	TagDomesticURLTest: true,
	TagAliDNS:          true,
	TagDNSPod:          true,
	TagBaiduDNS:        true,
	TagForeignProxied:  true,
}

// IsReservedDNSTag 判断 tag 是否由 DNS 注入模块管理
func IsReservedDNSTag(tag string) bool {
	return reservedDNSTags[tag]
}

// ReservedDNSTags 按注入顺序返回保留 tag
func ReservedDNSTags() []string {
	return []string{TagDomesticURLTest, TagAliDNS, TagDNSPod, TagBaiduDNS, TagForeignProxied}
}
