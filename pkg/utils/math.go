package utils

import "math"

// math.go - математика расчёта прибыли арбитража
//
// Все функции чистые, без побочных эффектов.
// Денежные величины в котируемой валюте (USD-эквивалент),
// проценты в диапазоне человека (1.5 = 1.5%).

// GrossSpreadPct возвращает валовый спред между ценами в процентах.
// Положительный спред: на целевой площадке дороже.
func GrossSpreadPct(sourcePrice, targetPrice float64) float64 {
	if sourcePrice <= 0 {
		return 0
	}
	return (targetPrice - sourcePrice) / sourcePrice * 100
}

// NetProfitUSD возвращает чистую прибыль в USD после вычета газа обеих
// ног, комиссии моста и проскальзывания на заданном капитале.
func NetProfitUSD(capital, grossSpreadPct, gasSourceUSD, gasTargetUSD, bridgeFeePct, slippagePct float64) float64 {
	if capital <= 0 {
		return 0
	}
	gross := capital * grossSpreadPct / 100
	bridgeCost := capital * bridgeFeePct / 100
	slippageCost := capital * slippagePct / 100
	return gross - gasSourceUSD - gasTargetUSD - bridgeCost - slippageCost
}

// NetProfitPct переводит чистую прибыль в проценты от капитала
func NetProfitPct(netProfitUSD, capital float64) float64 {
	if capital <= 0 {
		return 0
	}
	return netProfitUSD / capital * 100
}

// RoundTo округляет до заданного числа знаков после запятой
func RoundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ApproxEqual сравнивает float64 с допуском
func ApproxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
