package themes

// Theme is one entry of the financial risk theme taxonomy.
type Theme struct {
	Key         string
	DisplayName string
	Description string
	Keywords    []string
	SubThemes   []string
}

// OtherTheme is the catch-all for risks no named theme covers.
const OtherTheme = "other_financial_risks"

// Taxonomy lists every theme in a stable order. The order matters: the
// keyword fallback breaks score ties by taking the first theme, and the
// classification prompt enumerates themes in this order.
var Taxonomy = []Theme{
	{
		Key:         "credit_crisis",
		DisplayName: "Credit Crisis",
		Description: "Bank lending, defaults, and credit market disruptions",
		Keywords:    []string{"default", "credit", "loan", "mortgage", "debt", "bankruptcy", "npls"},
		SubThemes: []string{
			"bank_loan_defaults",
			"corporate_bond_crisis",
			"mortgage_market_collapse",
			"credit_rating_downgrades",
			"sovereign_debt_crisis",
		},
	},
	{
		Key:         "market_volatility",
		DisplayName: "Market Volatility Surge",
		Description: "Stock market crashes and asset price shocks",
		Keywords:    []string{"crash", "volatility", "plunge", "sell-off", "bear market", "correction", "stock"},
		SubThemes: []string{
			"stock_market_crash",
			"commodity_price_shock",
			"bond_market_turmoil",
			"crypto_market_collapse",
			"asset_price_bubble",
		},
	},
	{
		Key:         "currency_crisis",
		DisplayName: "Currency Crisis",
		Description: "Exchange rate volatility, currency devaluations, and FX market disruptions",
		Keywords:    []string{"currency", "exchange rate", "fx", "devaluation", "currency crisis", "forex", "dollar", "euro"},
		SubThemes: []string{
			"currency_devaluation",
			"fx_volatility_spike",
			"emerging_market_currency_crisis",
			"dollar_strength_shock",
			"currency_intervention",
		},
	},
	{
		Key:         "interest_rate_shock",
		DisplayName: "Interest Rate Shock",
		Description: "Central bank policy changes and interest rate volatility",
		Keywords:    []string{"interest rates", "fed policy", "monetary policy", "yield curve", "rate hikes", "rate cuts", "central bank"},
		SubThemes: []string{
			"fed_rate_hike_shock",
			"negative_interest_rates",
			"yield_curve_inversion",
			"monetary_policy_reversal",
			"rate_volatility_spike",
		},
	},
	{
		Key:         "geopolitical_crisis",
		DisplayName: "Geopolitical Crisis",
		Description: "Wars, sanctions, political instability, and international conflicts",
		Keywords:    []string{"war", "sanctions", "geopolitical", "conflict", "political crisis", "terrorism", "coup"},
		SubThemes: []string{
			"war_outbreak",
			"sanctions_escalation",
			"political_instability",
			"terrorist_attacks",
			"diplomatic_crisis",
		},
	},
	{
		Key:         "trade_war_escalation",
		DisplayName: "Trade War Escalation",
		Description: "Tariffs, trade disputes, and global trade disruptions",
		Keywords:    []string{"tariff", "trade war", "embargo", "protectionism", "duties", "trade dispute"},
		SubThemes: []string{
			"us_china_tariff_dispute",
			"eu_trade_barriers",
			"wto_disputes",
			"supply_chain_disruption",
			"export_restrictions",
		},
	},
	{
		Key:         "regulatory_crackdown",
		DisplayName: "Regulatory Crackdown",
		Description: "New regulations, compliance failures, and regulatory penalties",
		Keywords:    []string{"regulation", "compliance", "penalty", "fine", "investigation", "crackdown"},
		SubThemes: []string{
			"banking_regulation_tightening",
			"fintech_regulatory_action",
			"aml_compliance_failures",
			"data_privacy_violations",
			"market_manipulation_probes",
		},
	},
	{
		Key:         "cyber_security_breach",
		DisplayName: "Cyber Security Breach",
		Description: "Cyber attacks, data breaches, and digital infrastructure failures",
		Keywords:    []string{"cyber", "hack", "breach", "ransomware", "malware", "data theft"},
		SubThemes: []string{
			"banking_system_hack",
			"payment_network_breach",
			"customer_data_theft",
			"ransomware_attack",
			"digital_infrastructure_failure",
		},
	},
	{
		Key:         "liquidity_shortage",
		DisplayName: "Liquidity Shortage",
		Description: "Cash flow problems, funding stress, and liquidity crises",
		Keywords:    []string{"liquidity", "cash flow", "funding", "repo", "margin call", "freeze"},
		SubThemes: []string{
			"bank_run_panic",
			"repo_market_stress",
			"margin_call_cascade",
			"money_market_freeze",
			"central_bank_intervention",
		},
	},
	{
		Key:         "operational_disruption",
		DisplayName: "Operational Disruption",
		Description: "System failures, outages, and operational risk events",
		Keywords:    []string{"outage", "failure", "disruption", "error", "glitch", "breakdown"},
		SubThemes: []string{
			"payment_system_failure",
			"trading_platform_outage",
			"core_banking_disruption",
			"settlement_delays",
			"data_center_failure",
		},
	},
	{
		Key:         "real_estate_crisis",
		DisplayName: "Real Estate Crisis",
		Description: "Property market crashes, mortgage crises, and real estate bubbles",
		Keywords:    []string{"real estate", "property", "housing", "commercial property", "mortgage crisis", "property bubble"},
		SubThemes: []string{
			"housing_market_crash",
			"commercial_property_collapse",
			"mortgage_defaults_surge",
			"property_bubble_burst",
			"reit_crisis",
		},
	},
	{
		Key:         "inflation_crisis",
		DisplayName: "Inflation Crisis",
		Description: "Price surges, hyperinflation, and monetary debasement affecting banking",
		Keywords:    []string{"inflation", "hyperinflation", "price surge", "cost of living", "monetary debasement", "purchasing power"},
		SubThemes: []string{
			"hyperinflation_outbreak",
			"wage_price_spiral",
			"cost_of_living_crisis",
			"monetary_debasement",
			"purchasing_power_collapse",
		},
	},
	{
		Key:         "sovereign_debt_crisis",
		DisplayName: "Sovereign Debt Crisis",
		Description: "Government debt defaults, fiscal crises, and sovereign risk events",
		Keywords:    []string{"sovereign debt", "government default", "debt ceiling", "fiscal crisis", "bond yields", "sovereign risk"},
		SubThemes: []string{
			"government_debt_default",
			"debt_ceiling_crisis",
			"fiscal_cliff",
			"sovereign_bond_collapse",
			"emerging_market_debt_crisis",
		},
	},
	{
		Key:         "supply_chain_crisis",
		DisplayName: "Supply Chain Crisis",
		Description: "Global supply chain disruptions affecting trade finance and commerce",
		Keywords:    []string{"supply chain", "logistics crisis", "shipping disruption", "semiconductor shortage", "trade disruption"},
		SubThemes: []string{
			"global_shipping_crisis",
			"semiconductor_shortage",
			"logistics_breakdown",
			"trade_route_disruption",
			"manufacturing_halt",
		},
	},
	{
		Key:         "esg_climate_risk",
		DisplayName: "ESG & Climate Risk",
		Description: "Climate change impacts, ESG regulations, and sustainability crises",
		Keywords:    []string{"climate", "esg", "sustainability", "carbon", "green finance", "climate change", "environmental"},
		SubThemes: []string{
			"climate_stress_tests",
			"esg_regulatory_mandates",
			"stranded_assets_crisis",
			"carbon_pricing_shock",
			"green_finance_disruption",
		},
	},
	{
		Key:         "systemic_banking_crisis",
		DisplayName: "Systemic Banking Crisis",
		Description: "Bank failures, contagion risk, and systemic financial instability",
		Keywords:    []string{"bank failure", "contagion", "systemic", "bailout", "fdic", "collapse"},
		SubThemes: []string{
			"regional_bank_collapse",
			"too_big_to_fail_crisis",
			"deposit_insurance_strain",
			"interbank_contagion",
			"shadow_banking_crisis",
		},
	},
	{
		Key:         OtherTheme,
		DisplayName: "Other Financial Risks",
		Description: "Miscellaneous financial risks that don't fit specific categories",
		Keywords:    nil,
		SubThemes: []string{
			"unclassified_financial_risk",
			"emerging_risk_patterns",
			"miscellaneous_banking_issues",
			"novel_financial_disruptions",
			"undefined_risk_events",
		},
	},
}

// riskCategoryThemes maps analyzer risk categories onto themes for the
// last-resort deterministic fallback.
var riskCategoryThemes = map[string]string{
	"credit_risk":        "credit_crisis",
	"market_risk":        "market_volatility",
	"currency_risk":      "currency_crisis",
	"exchange_risk":      "currency_crisis",
	"fx_risk":            "currency_crisis",
	"operational_risk":   "operational_disruption",
	"cybersecurity_risk": "cyber_security_breach",
	"regulatory_risk":    "regulatory_crackdown",
	"liquidity_risk":     "liquidity_shortage",
	"systemic_risk":      "systemic_banking_crisis",
	"interest_rate_risk": "interest_rate_shock",
	"geopolitical_risk":  "geopolitical_crisis",
	"real_estate_risk":   "real_estate_crisis",
	"climate_risk":       "esg_climate_risk",
	"esg_risk":           "esg_climate_risk",
	"inflation_risk":     "inflation_crisis",
	"sovereign_risk":     "sovereign_debt_crisis",
	"supply_chain_risk":  "supply_chain_crisis",
}

var themeIndex = func() map[string]*Theme {
	m := make(map[string]*Theme, len(Taxonomy))
	for i := range Taxonomy {
		m[Taxonomy[i].Key] = &Taxonomy[i]
	}
	return m
}()

// Lookup returns the theme for key, or nil when the key is not part of
// the taxonomy.
func Lookup(key string) *Theme {
	return themeIndex[key]
}
