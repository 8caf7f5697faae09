package anomaly

import "github.com/Veraticus/yesan/internal/model"

// DefaultSeverityColor is used for severities the client does not know.
const DefaultSeverityColor = "#cbd5e0"

// SeverityLabel returns the badge text of a severity, or the raw value
// when unknown.
func SeverityLabel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🚨 매우 위험"
	case model.SeverityHigh:
		return "⚠️ 높음"
	case model.SeverityMedium:
		return "⚡ 보통"
	case model.SeverityLow:
		return "ℹ️ 낮음"
	}
	return string(s)
}

// SeverityColor returns the hex color of a severity.
func SeverityColor(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "#f56565"
	case model.SeverityHigh:
		return "#f6ad55"
	case model.SeverityMedium:
		return "#f6e05e"
	case model.SeverityLow:
		return "#68d391"
	}
	return DefaultSeverityColor
}

// Explanation describes how the engine detects an anomaly type.
type Explanation struct {
	Rule  string
	Cause string
	Risk  string
}

// GenericExplanation is shown for anomaly types without a description.
const GenericExplanation = "이상 케이스에 대한 상세 정보를 확인하세요."

var explanations = map[string]Explanation{
	"payment_delay": {
		Rule:  "거래일자와 지급예정일 사이가 40일 이상",
		Cause: "결재 지연, 예산 부족, 행정 오류 등",
		Risk:  "거래처 신뢰 저하, 재무 건전성 악화",
	},
	"exchange_rate_error": {
		Rule:  "전표 환율 vs 기준환율(세금계산서 거래일) 불일치",
		Cause: "환율 적용일 오류, 팻핑거 오류",
		Risk:  "회계 부정확성, 외화 차익/차손 오류",
	},
	"period_mismatch": {
		Rule:  "적요의 기간 vs 전표일자 월 불일치",
		Cause: "전표 복사 시 적요 미수정, 담당자 오입력",
		Risk:  "기간귀속 오류, 회계감사 지적사항",
	},
	"account_mismatch": {
		Rule:  "시스템 등록 계좌 ≠ 세금계산서 계좌",
		Cause: "세금계산서 오류, 계좌 변경 미반영",
		Risk:  "지급 오류, 자금 손실 가능",
	},
	"invoice_mismatch": {
		Rule:  "Invoice 금액 ≠ 세금계산서 금액",
		Cause: "증빙 서류 오류, 이중 청구",
		Risk:  "과다/과소 지급, 회계 부정 의심",
	},
}

// Explain returns the detection rule of an anomaly type. ok is false for
// types without one; callers then show GenericExplanation.
func Explain(anomalyType string) (Explanation, bool) {
	e, ok := explanations[anomalyType]
	return e, ok
}
