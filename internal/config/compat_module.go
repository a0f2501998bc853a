package config

import (
	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
)

// CompatModule 兼容性修正模块
//  1. dns.rules 与 route.rules 中列表形式的 rule_set 改为单个字符串
//  2. dns.rules 中第一条 geosite: cn 替换为 rule_set: China-Site
type CompatModule struct{}

func (m *CompatModule) Name() string {
	return "compat"
}

func (m *CompatModule) Apply(doc *document.Object, ctx *BuildContext) error {
	logger.Info("Applying compatibility fixes...")

	if dns, ok := doc.Lookup("dns"); ok {
		if rules, ok := dns.List("rules"); ok {
			dns.Put("rules", m.fixDNSRules(rules, ctx))
		}
	}

	if route, ok := doc.Lookup("route"); ok {
		if rules, ok := route.List("rules"); ok {
			route.Put("rules", m.fixRouteRules(rules, ctx))
		}
	}

	logger.Info("Compatibility fixes done",
		"flattened_rule_sets", ctx.FlattenedRuleSets,
		"geosite_replaced", ctx.GeositeReplaced)
	return nil
}

func (m *CompatModule) fixDNSRules(rules []any, ctx *BuildContext) []any {
	fixed := make([]any, 0, len(rules))
	replaced := false
	for _, raw := range rules {
		rule, ok := raw.(*document.Object)
		if !ok || rule == nil {
			fixed = append(fixed, raw)
			continue
		}
		if flattenRuleSet(rule) {
			ctx.FlattenedRuleSets++
		}
		// 只替换第一条，后面的 geosite: cn 保持原样
		if !replaced {
			if geosite, ok := rule.String("geosite"); ok && geosite == GeositeChina {
				rule.Remove("geosite")
				rule.Put("rule_set", RuleSetChinaSite)
				replaced = true
				ctx.GeositeReplaced = true
			}
		}
		fixed = append(fixed, rule)
	}
	return fixed
}

func (m *CompatModule) fixRouteRules(rules []any, ctx *BuildContext) []any {
	fixed := make([]any, 0, len(rules))
	for _, raw := range rules {
		if rule, ok := raw.(*document.Object); ok && rule != nil && flattenRuleSet(rule) {
			ctx.FlattenedRuleSets++
		}
		fixed = append(fixed, raw)
	}
	return fixed
}

// flattenRuleSet 把 rule_set 列表替换成第一个元素
// 空列表保持不变
func flattenRuleSet(rule *document.Object) bool {
	list, ok := rule.List("rule_set")
	if !ok || len(list) == 0 {
		return false
	}
	rule.Put("rule_set", list[0])
	return true
}
