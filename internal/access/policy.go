package access

import (
	"fmt"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
)

// 资源
const (
	ObjLC         = "lc"
	ObjBG         = "bg"
	ObjDocument   = "document"
	ObjRisk       = "risk"
	ObjCompliance = "compliance"
	ObjDashboard  = "dashboard"
)

// 动作
const (
	ActView            = "view"
	ActCreate          = "create"
	ActSubmit          = "submit"
	ActAmend           = "amend"
	ActUpdate          = "update"
	ActVerify          = "verify"
	ActSendToRisk      = "send_to_risk"
	ActReturnToOfficer = "return_to_officer"
	ActApprove         = "approve"
	ActReject          = "reject"
	ActOpen            = "open"
	ActClose           = "close"
	ActIssue           = "issue"
	ActActivate        = "activate"
	ActCancel          = "cancel"
	ActClaim           = "claim"
	ActExpire          = "expire"
	ActDelete          = "delete"
	ActUpload          = "upload"
	ActArchive         = "archive"
	ActAssess          = "assess"
	ActEvaluate        = "evaluate"
	ActReview          = "review"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicies 柜员拥有全部权限；审批类动作只授予柜员
var defaultPolicies = [][]string{
	{string(model.RoleOfficer), "*", "*"},

	{string(model.RoleCustomer), ObjLC, ActView},
	{string(model.RoleCustomer), ObjLC, ActCreate},
	{string(model.RoleCustomer), ObjLC, ActSubmit},
	{string(model.RoleCustomer), ObjLC, ActAmend},
	{string(model.RoleCustomer), ObjBG, ActView},
	{string(model.RoleCustomer), ObjBG, ActCreate},
	{string(model.RoleCustomer), ObjBG, ActSubmit},
	{string(model.RoleCustomer), ObjBG, ActUpdate},
	{string(model.RoleCustomer), ObjDocument, ActView},
	{string(model.RoleCustomer), ObjDocument, ActUpload},
	{string(model.RoleCustomer), ObjDocument, ActUpdate},
	{string(model.RoleCustomer), ObjDocument, ActSubmit},
	{string(model.RoleCustomer), ObjDashboard, ActView},

	{string(model.RoleRisk), ObjLC, ActView},
	{string(model.RoleRisk), ObjBG, ActView},
	{string(model.RoleRisk), ObjBG, ActReturnToOfficer},
	{string(model.RoleRisk), ObjDocument, ActView},
	{string(model.RoleRisk), ObjRisk, "*"},
	{string(model.RoleRisk), ObjDashboard, ActView},
}

// ownerActions 除角色授权外还要求是创建人
var ownerActions = map[string]bool{
	ActSubmit: true,
	ActAmend:  true,
	ActUpdate: true,
	ActDelete: true,
}

// Policy 角色-动作授权（casbin）叠加所有权判定
type Policy struct {
	enforcer *casbin.Enforcer
	resolver *Resolver
}

// NewPolicy 使用内置策略；extra 为额外的 (role, obj, act) 规则
func NewPolicy(resolver *Resolver, extra ...[]string) (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	rules := append(append([][]string{}, defaultPolicies...), extra...)
	for _, rule := range rules {
		if len(rule) != 3 {
			return nil, fmt.Errorf("invalid policy rule %v", rule)
		}
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", rule, err)
		}
	}
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Policy{enforcer: enforcer, resolver: resolver}, nil
}

func (p *Policy) Resolver() *Resolver {
	return p.resolver
}

// Allowed 仅判定角色是否具备该动作
func (p *Policy) Allowed(principal *model.Principal, obj, act string) bool {
	if principal == nil || principal.Role == "" {
		return false
	}
	ok, err := p.enforcer.Enforce(string(principal.Role), obj, act)
	return err == nil && ok
}

// Authorize 针对具体交易授权。view 走 Resolver.CanView；
// submit/amend/update/delete 额外要求创建人；其他动作只看角色。
// 拒绝时返回 *apperr.UnauthorizedError，resource 形如 "submit LetterOfCredit:LC..."
func (p *Policy) Authorize(principal *model.Principal, obj, act string, inst model.Instrument) error {
	resource := describe(obj, act, inst)
	if !p.Allowed(principal, obj, act) {
		return apperr.Unauthorized(principal.Name(), resource)
	}
	if inst == nil {
		return nil
	}
	if act == ActView && !p.resolver.CanView(principal, inst) {
		return apperr.Unauthorized(principal.Name(), resource)
	}
	if ownerActions[act] && !p.resolver.CanMutate(principal, inst) {
		return apperr.Unauthorized(principal.Name(), resource)
	}
	return nil
}

// AuthorizeDocument 单据授权。inst 为关联交易，可以为 nil
func (p *Policy) AuthorizeDocument(principal *model.Principal, act string, doc *model.TradeDocument, inst model.Instrument) error {
	resource := act + " document"
	if doc != nil {
		resource = fmt.Sprintf("%s document:%s", act, doc.ReferenceNumber)
	}
	if !p.Allowed(principal, ObjDocument, act) {
		return apperr.Unauthorized(principal.Name(), resource)
	}
	if doc != nil && !p.resolver.CanViewDocument(principal, doc, inst) {
		return apperr.Unauthorized(principal.Name(), resource)
	}
	return nil
}

// AuthorizeUpload 上传授权：关联交易时要求创建人、受益人或柜员，独立上传要求客户或柜员
func (p *Policy) AuthorizeUpload(principal *model.Principal, tradeRef string, inst model.Instrument) error {
	if tradeRef == "" {
		if !p.resolver.CanUploadStandalone(principal) {
			return apperr.Unauthorized(principal.Name(), "upload standalone document")
		}
		return nil
	}
	if !p.resolver.CanUpload(principal, inst) {
		return apperr.Unauthorized(principal.Name(), "upload tradeRef:"+tradeRef)
	}
	return nil
}

func describe(obj, act string, inst model.Instrument) string {
	if inst == nil {
		return act + " " + obj
	}
	entity := obj
	switch inst.Kind() {
	case model.KindLC:
		entity = model.EntityLC
	case model.KindBG:
		entity = model.EntityBG
	}
	return fmt.Sprintf("%s %s:%s", act, entity, inst.Reference())
}
