package service

import (
	"encoding/json"
	"strings"
	"time"

	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 风险评分
// ============================================================================
//
// 各维度分数相加后截断到 [0,100]：
//
//	信用证: 金额(>100万 25 / >10万 15 / 5) + 期限(>365天 20 / >180天 10 / 5)
//	       + 币种(非 USD/EUR 15 / 5) + 基线 10
//	保函:   金额(>50万 25 / >10万 15 / 5) + 类型(Performance/Financial 20,
//	       Bid/Advance 15, 其他 10) + 期限(同信用证) + 基线 10
//
// 因子等级 1=低 2=中 3=高，交易对手风险固定为 2。
// ============================================================================

const (
	factorLow    = 1
	factorMedium = 2
	factorHigh   = 3

	defaultRecommendation  = "Standard monitoring recommended"
	missingRecommendation  = "Transaction not found - Default medium risk applied. Verify transaction details"
	generalRecommendation  = "General trade transaction - Standard due diligence recommended"
	manualRecommendation   = "Manual assessment completed"
	transactionRiskFactors = `{"transactionRisk":2}`
)

var (
	lcAmountHigh  = decimal.NewFromInt(1000000)
	bgAmountHigh  = decimal.NewFromInt(500000)
	amountMedium  = decimal.NewFromInt(100000)
	missingScore  = decimal.NewFromInt(50)
	generalScore  = decimal.NewFromInt(40)
	baselineScore = decimal.NewFromInt(10)
)

// RiskScore 评分结果
type RiskScore struct {
	Score           decimal.Decimal
	Factors         string
	Recommendations string
}

type lcFactors struct {
	AmountRisk        int `json:"amountRisk"`
	DurationRisk      int `json:"durationRisk"`
	CurrencyRisk      int `json:"currencyRisk"`
	DocumentationRisk int `json:"documentationRisk"`
	CounterpartyRisk  int `json:"counterpartyRisk"`
}

type bgFactors struct {
	AmountRisk        int `json:"amountRisk"`
	DurationRisk      int `json:"durationRisk"`
	GuaranteeTypeRisk int `json:"guaranteeTypeRisk"`
	CounterpartyRisk  int `json:"counterpartyRisk"`
	DocumentationRisk int `json:"documentationRisk"`
}

// RiskScorer 确定性评分，无副作用
type RiskScorer struct{}

// Score inst 为 nil 表示交易不存在，返回固定的中等风险
func (RiskScorer) Score(inst model.Instrument, now time.Time) RiskScore {
	switch v := inst.(type) {
	case *model.LetterOfCredit:
		if v != nil {
			return scoreLC(v, now)
		}
	case *model.BankGuarantee:
		if v != nil {
			return scoreBG(v, now)
		}
	}
	return RiskScore{Score: missingScore, Factors: transactionRiskFactors, Recommendations: missingRecommendation}
}

// General 既不是信用证也不是保函的交易
func (RiskScorer) General() RiskScore {
	return RiskScore{Score: generalScore, Factors: transactionRiskFactors, Recommendations: generalRecommendation}
}

func scoreLC(lc *model.LetterOfCredit, now time.Time) RiskScore {
	var (
		score = decimal.Zero
		recs  strings.Builder
		f     = lcFactors{DocumentationRisk: factorLow, CounterpartyRisk: factorMedium}
	)

	switch {
	case lc.Amount.GreaterThan(lcAmountHigh):
		score = score.Add(decimal.NewFromInt(25))
		f.AmountRisk = factorHigh
		recs.WriteString("Enhanced due diligence required; ")
	case lc.Amount.GreaterThan(amountMedium):
		score = score.Add(decimal.NewFromInt(15))
		f.AmountRisk = factorMedium
	default:
		score = score.Add(decimal.NewFromInt(5))
		f.AmountRisk = factorLow
	}

	var durationScore int64
	durationScore, f.DurationRisk = horizon(model.DaysBetween(now, lc.ExpiryDate))
	score = score.Add(decimal.NewFromInt(durationScore))
	if f.DurationRisk == factorHigh {
		recs.WriteString("Periodic review recommended; ")
	}

	if lc.Currency != "USD" && lc.Currency != "EUR" {
		score = score.Add(decimal.NewFromInt(15))
		f.CurrencyRisk = factorHigh
		recs.WriteString("Consider currency hedging; ")
	} else {
		score = score.Add(decimal.NewFromInt(5))
		f.CurrencyRisk = factorLow
	}

	score = score.Add(baselineScore)
	return RiskScore{Score: model.ClampScore(score), Factors: marshalFactors(f), Recommendations: orDefault(recs.String())}
}

func scoreBG(bg *model.BankGuarantee, now time.Time) RiskScore {
	var (
		score = decimal.Zero
		recs  strings.Builder
		f     = bgFactors{GuaranteeTypeRisk: factorLow, CounterpartyRisk: factorMedium, DocumentationRisk: factorLow}
	)

	switch {
	case bg.GuaranteeAmount.GreaterThan(bgAmountHigh):
		score = score.Add(decimal.NewFromInt(25))
		f.AmountRisk = factorHigh
		recs.WriteString("Senior approval required; ")
	case bg.GuaranteeAmount.GreaterThan(amountMedium):
		score = score.Add(decimal.NewFromInt(15))
		f.AmountRisk = factorMedium
	default:
		score = score.Add(decimal.NewFromInt(5))
		f.AmountRisk = factorLow
	}

	// 类型为空时不计分
	if t := bg.GuaranteeType; t != "" {
		switch {
		case strings.Contains(t, "Performance") || strings.Contains(t, "Financial"):
			score = score.Add(decimal.NewFromInt(20))
			f.GuaranteeTypeRisk = factorHigh
			recs.WriteString("Thorough applicant assessment required; ")
		case strings.Contains(t, "Bid") || strings.Contains(t, "Advance"):
			score = score.Add(decimal.NewFromInt(15))
			f.GuaranteeTypeRisk = factorMedium
		default:
			score = score.Add(decimal.NewFromInt(10))
		}
	}

	var durationScore int64
	durationScore, f.DurationRisk = horizon(model.DaysBetween(now, bg.ValidityPeriod))
	score = score.Add(decimal.NewFromInt(durationScore))
	if f.DurationRisk == factorHigh {
		recs.WriteString("Annual review required; ")
	}

	score = score.Add(baselineScore)
	return RiskScore{Score: model.ClampScore(score), Factors: marshalFactors(f), Recommendations: orDefault(recs.String())}
}

// horizon 剩余天数对应的分数和因子等级
func horizon(days int) (int64, int) {
	switch {
	case days > 365:
		return 20, factorHigh
	case days > 180:
		return 10, factorMedium
	default:
		return 5, factorLow
	}
}

func marshalFactors(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func orDefault(recs string) string {
	if recs == "" {
		return defaultRecommendation
	}
	return recs
}
