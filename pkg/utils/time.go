package utils

import "time"

// time.go - границы периодов для агрегации статистики сделок

// DayStartFrom возвращает начало суток для момента t
func DayStartFrom(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayStart возвращает начало текущих суток
func DayStart() time.Time {
	return DayStartFrom(time.Now())
}

// WeekStartFrom возвращает начало недели (понедельник) для момента t
func WeekStartFrom(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // воскресенье
	}
	return DayStartFrom(t.AddDate(0, 0, -(weekday - 1)))
}

// WeekStart возвращает начало текущей недели
func WeekStart() time.Time {
	return WeekStartFrom(time.Now())
}

// TimeRange представляет полуоткрытый интервал [From, To)
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains проверяет вхождение момента в интервал
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.From) && t.Before(tr.To)
}
