package bot

import "chainarb/internal/models"

// ValidTransitions определяет допустимые переходы между состояниями сделки.
// FAILED достижим из любого нетерминального состояния.
// CANCELLED допустим только пока нога распоряжения не началась.
var ValidTransitions = map[string][]string{
	// TradeDisposing из TradePending допустим только для disposal-only
	// сделок восстановления застрявшей позиции
	models.TradePending:   {models.TradeAcquiring, models.TradeDisposing, models.TradeCancelled, models.TradeFailed},
	models.TradeAcquiring: {models.TradeAcquired, models.TradeFailed},
	models.TradeAcquired:  {models.TradeBridging, models.TradeDisposing, models.TradeCancelled, models.TradeFailed},
	models.TradeBridging:  {models.TradeBridged, models.TradeFailed},
	models.TradeBridged:   {models.TradeDisposing, models.TradeCancelled, models.TradeFailed},
	models.TradeDisposing: {models.TradeSettled, models.TradeFailed},
	// Терминальные состояния переходов не имеют
	models.TradeSettled:   {},
	models.TradeFailed:    {},
	models.TradeCancelled: {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case models.TradePending:
		return "Сделка принята, ожидает исполнения"
	case models.TradeAcquiring:
		return "Покупка на исходной площадке..."
	case models.TradeAcquired:
		return "Токен куплен на исходной сети"
	case models.TradeBridging:
		return "Перенос между сетями..."
	case models.TradeBridged:
		return "Средства на целевой сети"
	case models.TradeDisposing:
		return "Продажа на целевой площадке..."
	case models.TradeSettled:
		return "Сделка завершена"
	case models.TradeFailed:
		return "Ошибка исполнения! Проверьте застрявшую позицию"
	case models.TradeCancelled:
		return "Сделка отменена"
	default:
		return "Неизвестное состояние"
	}
}

// IsCancellable сообщает, допустима ли отмена из состояния.
// После начала ноги распоряжения отменять нечего.
func IsCancellable(s string) bool {
	return CanTransition(s, models.TradeCancelled)
}
