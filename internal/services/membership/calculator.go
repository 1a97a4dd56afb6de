// Package membership вычисляет окно действия членства при подтверждении оплаты.
package membership

import (
	"time"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Calculator вычисляет окна членства. Сам расчёт чистый; атомарность записи
// обеспечивает транзакция хранилища, которая вызывает Window под блокировкой строк.
type Calculator struct {
	now func() time.Time
}

// NewCalculator создаёт калькулятор. now может быть nil, тогда используется time.Now.
func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Window возвращает новое окно для плана длительностью days дней.
//
// Если последнее оплаченное окно заканчивается строго позже now, новое окно
// начинается с его конца (стекирование). Иначе оно начинается в now.
func Window(latestEnd *time.Time, now time.Time, days int) models.Window {
	start := now
	if latestEnd != nil && latestEnd.After(now) {
		start = *latestEnd
	}
	return models.Window{
		Start: start,
		End:   start.AddDate(0, 0, days),
	}
}

// WindowAt вычисляет окно относительно текущего момента калькулятора.
// Сигнатура совпадает с repository.WindowFunc.
func (c *Calculator) WindowAt(latestEnd *time.Time, days int) models.Window {
	return Window(latestEnd, c.now().UTC(), days)
}

// Now возвращает текущий момент калькулятора.
func (c *Calculator) Now() time.Time {
	return c.now()
}
