package models

import "time"

// Stats представляет агрегированную статистику по сделкам
type Stats struct {
	TotalTrades    int         `json:"total_trades"`
	SettledTrades  int         `json:"settled_trades"`
	FailedTrades   int         `json:"failed_trades"`
	CancelledCount int         `json:"cancelled_trades"`
	TotalProfit    float64     `json:"total_profit"` // USD, только реализованная
	TodayTrades    int         `json:"today_trades"`
	TodayProfit    float64     `json:"today_profit"`
	WeekTrades     int         `json:"week_trades"`
	WeekProfit     float64     `json:"week_profit"`
	StrandedOpen   int         `json:"stranded_open"` // незакрытые застрявшие позиции
	TopPairs       []PairStat  `json:"top_pairs_by_profit"` // топ-5
	TopRoutes      []RouteStat `json:"top_routes_by_trades"` // топ-5
}

// PairStat представляет статистику по торговой паре
type PairStat struct {
	Pair  string  `json:"pair"`
	Value float64 `json:"value"` // количество сделок или прибыль
}

// RouteStat представляет статистику по маршруту источник->цель
type RouteStat struct {
	SourceChain string  `json:"source_chain"`
	TargetChain string  `json:"target_chain"`
	Value       float64 `json:"value"`
}

// StrandedEvent представляет событие застревания капитала
type StrandedEvent struct {
	TradeID   string    `json:"trade_id"`
	Chain     string    `json:"chain"`
	Token     string    `json:"token"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
