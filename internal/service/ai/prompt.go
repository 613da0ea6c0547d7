package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

const basePrompt = `你是一家技术咨询公司官网上的在线顾问，负责回答访客关于服务、报价、技术方案、交付周期和过往案例的问题。
回答使用访客的语言，保持专业、简洁、友好，每次回复不超过 120 个英文单词。
不要编造具体报价或客户名称；需要细节时引导访客预约免费咨询。`

// intentRules 针对不同意图补充的回复规则。
var intentRules = map[string][]string{
	"greeting": {
		"简短问候并询问访客所在行业和当前面临的挑战",
	},
	"service_inquiry": {
		"结合访客画像介绍最相关的一到两项服务",
		"说明每项服务能解决的具体问题",
	},
	"pricing": {
		"给出与公司规模相匹配的价格区间说明，而非具体报价",
		"提示最终价格取决于范围，建议预约评估",
	},
	"technical": {
		"围绕访客提到的技术栈给出方向性的建议",
		"避免过度展开实现细节",
	},
	"timeline": {
		"说明典型项目阶段与周期",
		"指出影响周期的主要因素",
	},
	"portfolio": {
		"概括相关行业的过往项目类型与成果",
		"不透露具体客户名称",
	},
}

// BuildSystemPrompt 根据访客画像与当前意图拼装系统提示词。
func BuildSystemPrompt(profile chat.Profile, intent string) string {
	var builder strings.Builder
	builder.WriteString(basePrompt)

	builder.WriteString("\n\n访客画像：")
	builder.WriteString(describeProfile(profile))

	if rules := intentRules[intent]; len(rules) > 0 {
		builder.WriteString(fmt.Sprintf("\n\n当前意图：%s\n回复规则：\n- ", intent))
		builder.WriteString(strings.Join(rules, "\n- "))
	}
	return builder.String()
}

func describeProfile(p chat.Profile) string {
	sections := make([]string, 0, 5)
	if p.Industry != "" {
		sections = append(sections, "行业="+p.Industry)
	}
	if p.CompanySize != "" {
		sections = append(sections, "规模="+string(p.CompanySize))
	}
	if len(p.Challenges) > 0 {
		sections = append(sections, "挑战="+strings.Join(p.Challenges, ","))
	}
	if len(p.Interests) > 0 {
		sections = append(sections, "兴趣="+strings.Join(p.Interests, ","))
	}
	if len(p.TechStack) > 0 {
		sections = append(sections, "技术栈="+strings.Join(p.TechStack, ","))
	}
	if len(sections) == 0 {
		return "暂无"
	}
	return strings.Join(sections, " | ")
}
