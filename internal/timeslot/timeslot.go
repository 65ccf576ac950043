// Package timeslot генерирует даты и интервалы забора и доставки на скользящее окно в семь дней.
package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// DateLayout задаёт формат даты в идентификаторах и снимках интервалов.
const DateLayout = "2006-01-02"

// WindowDays задаёт количество дней, доступных для выбора начиная с сегодняшнего.
const WindowDays = 7

var slotTimes = []string{
	"08:00 AM",
	"10:00 AM",
	"12:00 PM",
	"02:00 PM",
	"04:00 PM",
	"06:00 PM",
	"08:00 PM",
}

var (
	// ErrInvalidSlotID возвращается для идентификатора, не соответствующего формату <дата>-<номер>.
	ErrInvalidSlotID = errors.New("invalid time slot id")
	// ErrOutsideWindow возвращается для интервала за пределами окна выбора.
	ErrOutsideWindow = errors.New("time slot outside of booking window")
)

// Date описывает дату окна выбора и её подпись.
type Date struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DatesForWindow возвращает семь последовательных дат начиная с today.
func DatesForWindow(today time.Time) []Date {
	start := dayStart(today)
	dates := make([]Date, 0, WindowDays)
	for i := 0; i < WindowDays; i++ {
		d := start.AddDate(0, 0, i)
		dates = append(dates, Date{
			Value: d.Format(DateLayout),
			Label: Label(d, today),
		})
	}
	return dates
}

// Label возвращает подпись даты: Today, Tomorrow или "Mon, Jan 2".
func Label(date, today time.Time) string {
	d := dayStart(date.In(today.Location()))
	t := dayStart(today)

	switch {
	case d.Equal(t):
		return "Today"
	case d.Equal(t.AddDate(0, 0, 1)):
		return "Tomorrow"
	default:
		return d.Format("Mon, Jan 2")
	}
}

// SlotsForDate возвращает фиксированный набор интервалов для даты.
// Все интервалы доступны: модели загрузки пока нет.
func SlotsForDate(date string) []model.TimeSlot {
	slots := make([]model.TimeSlot, 0, len(slotTimes))
	for i, t := range slotTimes {
		slots = append(slots, model.TimeSlot{
			ID:        SlotID(date, i),
			Date:      date,
			Time:      t,
			Available: true,
		})
	}
	return slots
}

// SlotID строит детерминированный идентификатор интервала.
func SlotID(date string, index int) string {
	return date + "-" + strconv.Itoa(index)
}

// ParseID разбирает идентификатор интервала на дату и номер.
func ParseID(id string) (string, int, error) {
	sep := strings.LastIndex(id, "-")
	if sep <= 0 || sep == len(id)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}

	date := id[:sep]
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}

	index, err := strconv.Atoi(id[sep+1:])
	if err != nil || index < 0 || index >= len(slotTimes) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}

	return date, index, nil
}

// Generator выдаёт окно дат и интервалы относительно текущего времени в заданной зоне.
type Generator struct {
	loc *time.Location
	now func() time.Time
}

// NewGenerator создаёт генератор для часового пояса loc; nil означает UTC.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{loc: loc, now: time.Now}
}

// Today возвращает текущий момент в часовом поясе генератора.
func (g *Generator) Today() time.Time {
	return g.now().In(g.loc)
}

// Dates возвращает окно дат от сегодняшнего дня.
func (g *Generator) Dates() []Date {
	return DatesForWindow(g.Today())
}

// Slots возвращает интервалы даты, если она входит в окно.
func (g *Generator) Slots(date string) ([]model.TimeSlot, error) {
	if !g.inWindow(date) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideWindow, date)
	}
	return SlotsForDate(date), nil
}

// Lookup восстанавливает интервал по идентификатору и проверяет, что он входит в окно.
func (g *Generator) Lookup(id string) (model.TimeSlot, error) {
	date, index, err := ParseID(id)
	if err != nil {
		return model.TimeSlot{}, err
	}

	slots, err := g.Slots(date)
	if err != nil {
		return model.TimeSlot{}, err
	}

	return slots[index], nil
}

func (g *Generator) inWindow(date string) bool {
	for _, d := range g.Dates() {
		if d.Value == date {
			return true
		}
	}
	return false
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
