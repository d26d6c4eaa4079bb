package clock

import "time"

// Clock отдаёт текущее время в часовом поясе приёмной комиссии.
// Внедряется зависимостью, чтобы в тестах время можно было заморозить.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &systemClock{loc: loc}, nil
}

func (c *systemClock) Now() time.Time { return time.Now().In(c.loc) }
func (c *systemClock) Location() *time.Location { return c.loc }

// Fixed — замороженные часы для тестов.
type Fixed struct {
	Current time.Time
}

func (f *Fixed) Now() time.Time { return f.Current }
func (f *Fixed) Location() *time.Location { return f.Current.Location() }

// Advance сдвигает замороженное время вперёд.
func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
