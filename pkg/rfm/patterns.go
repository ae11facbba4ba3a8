package rfm

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

// The tables below are static, versioned data separated from the matching
// engine in detector.go. Patterns are matched against lowercased,
// singularized column names; tiers are scanned in order and the first
// matching column for the earliest pattern wins.

// rolePattern pairs a name pattern with the confidence a match earns.
type rolePattern struct {
	re         *regexp.Regexp
	confidence float64
}

// customerIDPatterns: explicit customer-id terms first, then user/member-id
// terms, then generic customer-word + id-suffix combinations.
var customerIDPatterns = []rolePattern{
	{regexp.MustCompile(`^customer_?id$`), 1.0},
	{regexp.MustCompile(`^(cust|client|buyer)_?(id|no|code)$`), 1.0},
	{regexp.MustCompile(`客户(id|编号|号)`), 1.0},
	{regexp.MustCompile(`^(user|member)_?id$`), 0.9},
	{regexp.MustCompile(`(用户|会员)(id|编号)`), 0.9},
	{regexp.MustCompile(`(customer|cust|client|buyer|user|member|客户|用户|会员).*(id|no|code|编号|号)$`), 0.7},
}

var orderIDPatterns = []rolePattern{
	{regexp.MustCompile(`^order_?(id|no|number|code)$`), 1.0},
	{regexp.MustCompile(`订单(id|编号|号)`), 1.0},
	{regexp.MustCompile(`^(transaction|trans|txn)_?(id|no)$`), 0.9},
	{regexp.MustCompile(`(order|订单).*(id|no|number|编号|号)$`), 0.7},
}

// TimeColumnPatterns is the ordered date/time name list. It is shared with
// the general semantic-type matcher, so order-date detection and column
// typing elsewhere agree on what looks like a time column.
var TimeColumnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^order_?(date|time)$`),
	regexp.MustCompile(`^(purchase|transaction|trans|pay|payment)_?(date|time)$`),
	regexp.MustCompile(`订单(日期|时间)`),
	regexp.MustCompile(`(下单|购买|支付|交易)(日期|时间)`),
	regexp.MustCompile(`^created?_?(at|date|time)$`),
	regexp.MustCompile(`(日期|时间)$`),
	regexp.MustCompile(`(date|time|_at)$`),
}

// orderDatePatterns wraps the shared time list with per-tier confidence:
// order-specific names score higher than generic timestamps.
var orderDatePatterns = []rolePattern{
	{TimeColumnPatterns[0], 1.0},
	{TimeColumnPatterns[1], 1.0},
	{TimeColumnPatterns[2], 1.0},
	{TimeColumnPatterns[3], 0.9},
	{TimeColumnPatterns[4], 0.7},
	{TimeColumnPatterns[5], 0.6},
	{TimeColumnPatterns[6], 0.6},
}

// preciseAmountNames matches exactly (after normalization) and short-circuits
// with confidence 1.0.
var preciseAmountNames = []string{
	"amount", "order_amount", "total_amount", "pay_amount", "payment_amount",
	"paid_amount", "total_price", "total", "revenue", "sales_amount",
	"金额", "订单金额", "支付金额", "成交金额", "销售额", "消费金额",
}

// fuzzyAmountTerms is the loose second tier, filtered by amountExclusions.
var fuzzyAmountTerms = []string{
	"amount", "price", "total", "pay", "fee", "cost", "value", "revenue",
	"金额", "价", "费", "额",
}

// amountExclusions rejects id/serial-like, method/type-like, status-like and
// date/time-like columns that happen to contain an amount word.
var amountExclusions = []string{
	"id", "no", "number", "code", "serial",
	"type", "method", "way", "mode", "channel",
	"status", "state", "flag",
	"date", "time",
	"编号", "方式", "类型", "渠道", "状态", "日期", "时间",
}

// precomputedRoleTerms maps each precomputed RFM role to its name term.
var precomputedRoleTerms = map[string]string{
	"recency":   "recency",
	"frequency": "frequency",
	"monetary":  "monetary",
}

// normalizeColumn lowercases a column name and singularizes its underscore
// tokens so "Customers_ID" and "customer_id" match the same patterns.
func normalizeColumn(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	tokens := strings.Split(lower, "_")
	for i, tok := range tokens {
		tokens[i] = inflection.Singular(tok)
	}
	return strings.Join(tokens, "_")
}

// MatchesTimeColumn reports whether a column name looks like a date/time
// column under the shared pattern list.
func MatchesTimeColumn(name string) bool {
	normalized := normalizeColumn(name)
	for _, re := range TimeColumnPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
