// Package features implements the tick/minute/hour feature engines
// (spec §4.6, §4.7): rolling z-scored microstructure statistics read
// from a top-K LOB view, cascaded into OHLCV bars at coarser cadences.
package features

// Class is the two-level taxonomy the original C++ feature registry
// (cpp/include/features/FeaturesTick.hpp) carries per feature —
// SPEC_FULL §3 supplemented feature 1.
type Class string

const (
	ClassDepthStructure Class = "SD"
	ClassOrderFlow      Class = "DF"
	ClassBehavioral     Class = "BH"
	ClassClustering     Class = "CD"
	ClassResiliency     Class = "RS"
	ClassImpactCost     Class = "IC"
	ClassAnomaly        Class = "AN"
)

// Meta describes one feature's identity for schema introspection: a
// short code, its taxonomy class, and a human-readable formula string.
// The feature-store schema carries one Meta per column; this is
// metadata over the existing typed columns, not a new persistence
// format (SPEC_FULL §3's "no feature here narrows a stated Non-goal").
type Meta struct {
	Code    string
	Class   Class
	Formula string
}

// Registry is the ordered list of every tick feature this engine
// computes, in column order.
var Registry = []Meta{
	{"spread", ClassDepthStructure, "best_ask - best_bid"},
	{"micro_price_gap", ClassDepthStructure, "(best_ask*bid_vol_1 + best_bid*ask_vol_1)/(bid_vol_1+ask_vol_1) - mid"},
	{"tob_imbalance", ClassDepthStructure, "(bid_vol_1 - ask_vol_1)/(bid_vol_1 + ask_vol_1)"},
	{"convexity_imbalance_g1", ClassDepthStructure, "sum(w_i*(Vb_i-Va_i))/sum(w_i*(Vb_i+Va_i)), w_i=1/i^1"},
	{"convexity_imbalance_g2", ClassDepthStructure, "sum(w_i*(Vb_i-Va_i))/sum(w_i*(Vb_i+Va_i)), w_i=1/i^2"},
	{"convexity_imbalance_g3", ClassDepthStructure, "sum(w_i*(Vb_i-Va_i))/sum(w_i*(Vb_i+Va_i)), w_i=1/i^3"},
	{"distance_imbalance_l01", ClassDepthStructure, "sum(exp(-0.01*dp_i)*(Vb_i-Va_i))/sum(exp(-0.01*dp_i)*(Vb_i+Va_i))"},
	{"distance_imbalance_l05", ClassDepthStructure, "sum(exp(-0.05*dp_i)*(Vb_i-Va_i))/sum(exp(-0.05*dp_i)*(Vb_i+Va_i))"},
	{"distance_imbalance_l10", ClassDepthStructure, "sum(exp(-0.10*dp_i)*(Vb_i-Va_i))/sum(exp(-0.10*dp_i)*(Vb_i+Va_i))"},
	{"depth_cumulative_ratio", ClassDepthStructure, "sum(Vb_1..K)/sum(Va_1..K)"},
	{"depth_adjacent_ratio_bid", ClassDepthStructure, "mean(Vb_{i+1}/Vb_i)"},
	{"depth_adjacent_ratio_ask", ClassDepthStructure, "mean(Va_{i+1}/Va_i)"},
	{"depth_convexity_bid", ClassDepthStructure, "quadratic fit coefficient of Vb_i vs i"},
	{"depth_convexity_ask", ClassDepthStructure, "quadratic fit coefficient of Va_i vs i"},
	{"depth_slope_bid", ClassDepthStructure, "linear fit slope of Vb_i vs i"},
	{"depth_slope_ask", ClassDepthStructure, "linear fit slope of Va_i vs i"},
	{"depth_entropy_bid", ClassDepthStructure, "shannon entropy of normalized Vb_1..K"},
	{"depth_entropy_ask", ClassDepthStructure, "shannon entropy of normalized Va_1..K"},
	{"arrival_rate", ClassOrderFlow, "makers since last tick / dt"},
	{"cancel_rate", ClassOrderFlow, "cancels since last tick / dt"},
	{"taker_buy_rate", ClassOrderFlow, "bid-side takers since last tick / dt"},
	{"taker_sell_rate", ClassOrderFlow, "ask-side takers since last tick / dt"},
	{"aggressiveness_ratio", ClassBehavioral, "takers / (takers + makers)"},
	{"cancel_to_post_ratio", ClassBehavioral, "cancels / makers"},
	{"fleeting_order_ratio", ClassBehavioral, "cancels within fleeting_window / makers"},
	{"order_flow_clustering", ClassClustering, "autocorrelation of signed order-flow at lag 1"},
	{"resiliency", ClassResiliency, "1 / ticks for spread to revert after a widening shock"},
	{"impact_cost", ClassImpactCost, "volume-weighted price move per unit taker volume"},
	{"quote_anomaly", ClassAnomaly, "|tob_imbalance z-score| exceeding an outlier bound"},
}

// Len is the fixed tick feature-row width.
func Len() int { return len(Registry) }
