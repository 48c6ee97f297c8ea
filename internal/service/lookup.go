package service

import (
	"context"
	"strings"

	"tfms/internal/apperr"
	"tfms/internal/model"
)

// instruments 按参考号前缀查找信用证或保函
type instruments struct {
	lcs LCRepository
	bgs BGRepository
}

// find 找不到或前缀无法识别时返回 NotFound
func (f instruments) find(ctx context.Context, reference string) (model.Instrument, error) {
	ref := strings.TrimSpace(reference)
	switch model.KindOf(ref) {
	case model.KindLC:
		lc, err := f.lcs.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		return lc, nil
	case model.KindBG:
		bg, err := f.bgs.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		return bg, nil
	}
	return nil, apperr.NotFound("Transaction", "referenceNumber", ref)
}

// findOptional 不存在时返回 nil, nil
func (f instruments) findOptional(ctx context.Context, reference string) (model.Instrument, error) {
	inst, err := f.find(ctx, reference)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return inst, err
}

// visibleReferences 主体创建的或作为受益人的全部交易参考号
func (f instruments) visibleReferences(ctx context.Context, p *model.Principal) ([]string, error) {
	seen := map[string]bool{}
	var refs []string
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	created, err := f.lcs.ListByCreatedBy(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	benef, err := f.lcs.ListByBeneficiary(ctx, identityNames(p)...)
	if err != nil {
		return nil, err
	}
	for _, lc := range append(created, benef...) {
		add(lc.ReferenceNumber)
	}

	createdBG, err := f.bgs.ListByCreatedBy(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	benefBG, err := f.bgs.ListByBeneficiary(ctx, identityNames(p)...)
	if err != nil {
		return nil, err
	}
	for _, bg := range append(createdBG, benefBG...) {
		add(bg.ReferenceNumber)
	}
	return refs, nil
}
