package classifier

import "github.com/cohortiq-inc/cohortiq-engine/pkg/models"

// The keyword tables below are static, versioned data. They are initialized
// once and never mutated; the matching engine lives in classifier.go and
// treats these as read-only input so tables can grow without touching
// control flow.

// queryTypeOrder fixes tie-breaking: the earliest type with the top score
// wins.
var queryTypeOrder = []models.QueryType{
	models.QueryTypeKPISingle,
	models.QueryTypeKPIGrouped,
	models.QueryTypeTrendTime,
	models.QueryTypeDistribution,
	models.QueryTypeTopN,
	models.QueryTypeComparison,
}

// keywordEntry holds the weighted keyword lists for one query type.
// Primary hits score 2, secondary hits score 1.
type keywordEntry struct {
	Primary   []string
	Secondary []string
}

var keywordTable = map[models.QueryType]keywordEntry{
	models.QueryTypeKPISingle: {
		Primary:   []string{"总共", "一共", "合计", "总计", "多少", "total", "overall", "how many", "how much"},
		Secondary: []string{"数量", "金额", "count", "sum", "amount"},
	},
	models.QueryTypeKPIGrouped: {
		Primary:   []string{"按照", "按", "分组", "各个", "每个", "group by", "by category", "per ", "breakdown"},
		Secondary: []string{"统计", "分别", "各自", "分类", "split by"},
	},
	models.QueryTypeTrendTime: {
		Primary:   []string{"趋势", "走势", "变化", "环比", "同比", "trend", "over time", "growth"},
		Secondary: []string{"月度", "季度", "年度", "daily", "weekly", "monthly", "时间"},
	},
	models.QueryTypeDistribution: {
		Primary:   []string{"分布", "占比", "比例", "构成", "distribution", "proportion", "share of"},
		Secondary: []string{"百分比", "组成", "percentage", "histogram"},
	},
	models.QueryTypeTopN: {
		Primary:   []string{"排名", "排行", "top", "前", "最高", "最低", "rank"},
		Secondary: []string{"最大", "最小", "best", "worst", "名"},
	},
	models.QueryTypeComparison: {
		Primary:   []string{"对比", "比较", "相比", "compare", "versus", " vs "},
		Secondary: []string{"差异", "差别", "difference", "gap"},
	},
}

// domainTerms lists industry-specific vocabulary used only to raise
// confidence, never to pick a type. When no industry is supplied every list
// is searched.
var domainTerms = map[string][]string{
	"ecommerce": {"订单", "商品", "购物车", "退货", "sku", "order", "cart", "refund"},
	"retail":    {"门店", "库存", "货架", "补货", "store", "inventory", "shelf"},
	"saas":      {"订阅", "续费", "流失", "激活", "subscription", "churn", "activation", "mrr"},
	"finance":   {"交易", "账户", "余额", "利息", "transaction", "account", "balance", "interest"},
}

// generalDomainTerms apply to every industry.
var generalDomainTerms = []string{
	"销售额", "营收", "收入", "客户", "用户", "利润",
	"revenue", "sales", "customer", "profit", "income",
}

// chineseNumeral maps numeral words used in top-N phrases to their value.
// Scanned in declaration order; the first match wins and multiple numerals
// are never aggregated.
type chineseNumeral struct {
	Word  string
	Value int
}

var chineseNumerals = []chineseNumeral{
	{"十", 10},
	{"五", 5},
	{"三", 3},
	{"二十", 20},
	{"五十", 50},
	{"百", 100},
}
