package venue

import (
	"fmt"
	"strings"
	"time"

	"chainarb/internal/chain"
)

// Известные площадки и их сети
var knownVenues = map[string]string{
	"uniswap":     "ethereum",
	"sushiswap":   "ethereum",
	"pancakeswap": "bsc",
	"biswap":      "bsc",
	"quickswap":   "polygon",
	"sushipoly":   "polygon",
	"traderjoe":   "avalanche",
	"pangolin":    "avalanche",
}

// Смещения цен для симуляции: расхождения между площадками
// возникают из разности смещений
var simulatedOffsets = map[string]float64{
	"uniswap":     0.0,
	"sushiswap":   0.4,
	"pancakeswap": 1.8,
	"biswap":      1.2,
	"quickswap":   2.6,
	"sushipoly":   2.1,
	"traderjoe":   0.9,
	"pangolin":    1.5,
}

// IsSupported проверяет, известна ли площадка
func IsSupported(name string) bool {
	_, ok := knownVenues[strings.ToLower(name)]
	return ok
}

// ChainOf возвращает сеть площадки
func ChainOf(name string) (string, error) {
	chainName, ok := knownVenues[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unsupported venue: %s", name)
	}
	return chainName, nil
}

// BuildSimulated создает детерминированные площадки для включённых
// сетей. basePrices задаёт цены пар ("ETH/USDC" -> 100).
func BuildSimulated(enabledChains []string, basePrices map[string]float64, gas chain.GasOracle) []Venue {
	enabled := make(map[string]bool, len(enabledChains))
	for _, c := range enabledChains {
		enabled[c] = true
	}

	var venues []Venue
	for name, chainName := range knownVenues {
		if !enabled[chainName] {
			continue
		}
		venues = append(venues, NewSimulatedVenue(SimulatedConfig{
			Name:       name,
			Chain:      chainName,
			BasePrices: basePrices,
			OffsetPct:  simulatedOffsets[name],
			Slippage:   0.01,
			Latency:    20 * time.Millisecond,
		}, gas))
	}
	return venues
}

// BuildREST создает REST клиентов по карте venue -> URL шлюза.
// Неизвестные площадки отклоняются.
func BuildREST(endpoints map[string]string, apiKeys map[string]string, enabledChains []string, gas chain.GasOracle) ([]Venue, error) {
	enabled := make(map[string]bool, len(enabledChains))
	for _, c := range enabledChains {
		enabled[c] = true
	}

	var venues []Venue
	for name, baseURL := range endpoints {
		chainName, err := ChainOf(name)
		if err != nil {
			return nil, err
		}
		if !enabled[chainName] {
			continue
		}
		venues = append(venues, NewRESTVenue(RESTVenueConfig{
			Name:    strings.ToLower(name),
			Chain:   chainName,
			BaseURL: baseURL,
			APIKey:  apiKeys[name],
		}, gas))
	}
	if len(venues) == 0 {
		return nil, fmt.Errorf("no venues configured for enabled chains")
	}
	return venues, nil
}
