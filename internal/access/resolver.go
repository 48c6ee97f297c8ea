// Package access 决定主体能否查看、修改某笔交易或单据
package access

import (
	"strings"

	"tfms/internal/model"
)

// Resolver 基于角色和身份匹配的访问判定，无状态，可并发使用
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// IdentityMatches candidate 去空格后与任一身份忽略大小写相等即匹配，空串不参与比较
func IdentityMatches(candidate string, identities ...string) bool {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return false
	}
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id != "" && strings.EqualFold(c, id) {
			return true
		}
	}
	return false
}

// identities 按用户名、全名、邮箱的顺序
func identities(p *model.Principal) []string {
	return []string{p.Username, p.FullName, p.Email}
}

// IsBeneficiary 主体是否是交易的受益人
func (r *Resolver) IsBeneficiary(p *model.Principal, inst model.Instrument) bool {
	if p == nil || inst == nil {
		return false
	}
	return IdentityMatches(inst.Beneficiary(), identities(p)...)
}

// IsCreator 创建人需要精确匹配
func (r *Resolver) IsCreator(p *model.Principal, inst model.Instrument) bool {
	if p == nil || inst == nil || p.Username == "" {
		return false
	}
	return p.Username == inst.Creator()
}

// CanView 柜员和风控可以查看全部，其他人只能看自己创建的或自己是受益人的
func (r *Resolver) CanView(p *model.Principal, inst model.Instrument) bool {
	if p == nil || inst == nil {
		return false
	}
	if p.IsStaff() {
		return true
	}
	return r.IsCreator(p, inst) || r.IsBeneficiary(p, inst)
}

// CanMutate 编辑、提交、删除只允许创建人，受益人身份不授予修改权限
func (r *Resolver) CanMutate(p *model.Principal, inst model.Instrument) bool {
	return r.IsCreator(p, inst)
}

// CanUpload 为某笔交易上传单据：柜员、创建人或受益人
func (r *Resolver) CanUpload(p *model.Principal, inst model.Instrument) bool {
	if p == nil || inst == nil {
		return false
	}
	if p.IsOfficer() {
		return true
	}
	return r.IsCreator(p, inst) || r.IsBeneficiary(p, inst)
}

// CanUploadStandalone 不关联交易的单据只允许客户和柜员上传
func (r *Resolver) CanUploadStandalone(p *model.Principal) bool {
	return p != nil && (p.Role == model.RoleCustomer || p.Role == model.RoleOfficer)
}

// CanViewDocument 上传人按用户名精确匹配。inst 为单据关联的交易，未关联或交易已不存在时传 nil
func (r *Resolver) CanViewDocument(p *model.Principal, doc *model.TradeDocument, inst model.Instrument) bool {
	if p == nil || doc == nil {
		return false
	}
	if p.IsStaff() {
		return true
	}
	if p.Username != "" && doc.UploadedBy == p.Username {
		return true
	}
	if !doc.Linked() || inst == nil {
		return false
	}
	return r.CanView(p, inst)
}
