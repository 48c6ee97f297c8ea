package model

import "strings"

// Role 系统角色
type Role string

const (
	RoleCustomer Role = "CUSTOMER" // 进口商/出口商
	RoleOfficer  Role = "OFFICER"  // 银行柜员：审批、开立、合规
	RoleRisk     Role = "RISK"     // 风险分析师
)

// ParseRole 兼容 "ROLE_OFFICER"、"officer" 等写法，无法识别时返回空
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "ROLE_")
	switch {
	case strings.Contains(s, string(RoleOfficer)):
		return RoleOfficer
	case strings.Contains(s, string(RoleRisk)):
		return RoleRisk
	case strings.Contains(s, string(RoleCustomer)):
		return RoleCustomer
	}
	return ""
}

// Principal 当前操作人，由身份层（JWT）解析得到，核心逻辑不做认证
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (p *Principal) IsOfficer() bool { return p != nil && p.Role == RoleOfficer }

func (p *Principal) IsRisk() bool { return p != nil && p.Role == RoleRisk }

// IsStaff 银行内部人员（柜员或风险分析师）
func (p *Principal) IsStaff() bool { return p.IsOfficer() || p.IsRisk() }

// Name 用于日志和审计，未登录时返回 "anonymous"
func (p *Principal) Name() string {
	if p == nil || p.Username == "" {
		return "anonymous"
	}
	return p.Username
}
