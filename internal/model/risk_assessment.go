package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel 风险等级，由分数唯一确定
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskLevels 按严重程度升序
var RiskLevels = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}

const EntityRisk = "RiskAssessment"

var (
	scoreMin       = decimal.Zero
	scoreMax       = decimal.NewFromInt(100)
	criticalCutoff = decimal.NewFromInt(75)
	highCutoff     = decimal.NewFromInt(60)
	mediumCutoff   = decimal.NewFromInt(25)
)

// ClampScore 限定到 [0,100] 并保留两位小数
func ClampScore(score decimal.Decimal) decimal.Decimal {
	if score.LessThan(scoreMin) {
		return scoreMin
	}
	if score.GreaterThan(scoreMax) {
		return scoreMax
	}
	return score.Round(2)
}

// RiskLevelFor >=75 CRITICAL, >=60 HIGH, >=25 MEDIUM, 其余 LOW
func RiskLevelFor(score decimal.Decimal) RiskLevel {
	switch {
	case score.GreaterThanOrEqual(criticalCutoff):
		return RiskLevelCritical
	case score.GreaterThanOrEqual(highCutoff):
		return RiskLevelHigh
	case score.GreaterThanOrEqual(mediumCutoff):
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RiskAssessment 风险评估记录，同一交易可以有多条，最新一条为当前评估
type RiskAssessment struct {
	ID                   uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionReference string          `gorm:"type:varchar(50);index;not null" json:"transaction_reference"`
	TransactionType      string          `gorm:"type:varchar(30)" json:"transaction_type"`
	RiskScore            decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"risk_score"`
	RiskLevel            RiskLevel       `gorm:"type:varchar(20);index;not null" json:"risk_level"`
	RiskFactors          string          `gorm:"type:text" json:"risk_factors"`
	Recommendations      string          `gorm:"type:text" json:"recommendations"`
	Remarks              string          `gorm:"type:text" json:"remarks"`
	AssessedBy           string          `gorm:"type:varchar(50)" json:"assessed_by"`
	AssessmentDate       time.Time       `gorm:"index" json:"assessment_date"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (RiskAssessment) TableName() string {
	return "risk_assessment"
}

// NewRiskAssessment 分数先截断再推导等级，保证等级与分数一致
func NewRiskAssessment(reference, txType string, score decimal.Decimal, factors, recommendations, remarks, assessedBy string, now time.Time) *RiskAssessment {
	score = ClampScore(score)
	return &RiskAssessment{
		TransactionReference: reference,
		TransactionType:      txType,
		RiskScore:            score,
		RiskLevel:            RiskLevelFor(score),
		RiskFactors:          factors,
		Recommendations:      recommendations,
		Remarks:              remarks,
		AssessedBy:           assessedBy,
		AssessmentDate:       now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (r *RiskAssessment) UpdateRemarks(remarks string, now time.Time) {
	r.Remarks = remarks
	r.UpdatedAt = now
}

// NewerThan 评估时间更晚者为新，时间相同按 ID 大者为新
func (r *RiskAssessment) NewerThan(o *RiskAssessment) bool {
	if o == nil {
		return true
	}
	if !r.AssessmentDate.Equal(o.AssessmentDate) {
		return r.AssessmentDate.After(o.AssessmentDate)
	}
	return r.ID > o.ID
}
