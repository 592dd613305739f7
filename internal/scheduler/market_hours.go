package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// TradingWindow represents a single trading period within a day
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// ExchangeCalendar defines trading hours for an exchange
type ExchangeCalendar struct {
	Code        string
	Name        string
	TimezoneStr string
	Timezone    *time.Location
	Windows     []TradingWindow
}

// MarketHoursService answers whether the exchanges behind the tracked
// world indices are trading right now. It only knows weekdays and core
// session windows; holiday closures just produce one extra refresh of
// unchanged data, which is harmless.
type MarketHoursService struct {
	calendars map[string]*ExchangeCalendar
	now       func() time.Time
	log       zerolog.Logger
}

// NewMarketHoursService creates a market hours service covering the
// exchanges of the world market indices.
func NewMarketHoursService(log zerolog.Logger) *MarketHoursService {
	s := &MarketHoursService{
		calendars: make(map[string]*ExchangeCalendar),
		now:       time.Now,
		log:       log.With().Str("component", "market_hours").Logger(),
	}

	s.initializeCalendars()
	return s
}

func (s *MarketHoursService) initializeCalendars() {
	add := func(code, name, tz string, windows ...TradingWindow) {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			s.log.Warn().Str("timezone", tz).Msg("Unknown timezone, using UTC")
			loc = time.UTC
		}
		s.calendars[code] = &ExchangeCalendar{
			Code:        code,
			Name:        name,
			TimezoneStr: tz,
			Timezone:    loc,
			Windows:     windows,
		}
	}

	// NYSE/NASDAQ: 09:30-16:00 ET
	add("NYSE", "New York Stock Exchange", "America/New_York",
		TradingWindow{9, 30, 16, 0})

	// LSE: 08:00-16:30 GMT
	add("LSE", "London Stock Exchange", "Europe/London",
		TradingWindow{8, 0, 16, 30})

	// XETRA: 09:00-17:30 CET
	add("XETRA", "Deutsche Boerse XETRA", "Europe/Berlin",
		TradingWindow{9, 0, 17, 30})

	// TSE: 09:00-11:30 / 12:30-15:00 JST, lunch break
	add("TSE", "Tokyo Stock Exchange", "Asia/Tokyo",
		TradingWindow{9, 0, 11, 30}, TradingWindow{12, 30, 15, 0})

	// HKEX: 09:30-12:00 / 13:00-16:00 HKT, lunch break
	add("HKEX", "Hong Kong Stock Exchange", "Asia/Hong_Kong",
		TradingWindow{9, 30, 12, 0}, TradingWindow{13, 0, 16, 0})

	// SSE: 09:30-11:30 / 13:00-15:00 CST, lunch break
	add("SSE", "Shanghai Stock Exchange", "Asia/Shanghai",
		TradingWindow{9, 30, 11, 30}, TradingWindow{13, 0, 15, 0})

	s.log.Info().Int("calendars", len(s.calendars)).Msg("Market hours calendars initialized")
}

// IsMarketOpen checks if an exchange is inside a trading session.
// Unknown exchanges report closed.
func (s *MarketHoursService) IsMarketOpen(code string) bool {
	cal, ok := s.calendars[code]
	if !ok {
		s.log.Warn().Str("exchange", code).Msg("Unknown exchange")
		return false
	}

	now := s.now().In(cal.Timezone)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	for _, w := range cal.Windows {
		open := w.OpenHour*60 + w.OpenMinute
		close := w.CloseHour*60 + w.CloseMinute
		if currentMinutes >= open && currentMinutes < close {
			return true
		}
	}

	return false
}

// AnyMarketOpen reports whether at least one tracked exchange is
// trading. The periodic refresh uses this to idle overnight.
func (s *MarketHoursService) AnyMarketOpen() bool {
	for code := range s.calendars {
		if s.IsMarketOpen(code) {
			return true
		}
	}
	return false
}

// MarketStatus represents the status of a market
type MarketStatus struct {
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
	IsOpen   bool   `json:"is_open"`
	Timezone string `json:"timezone"`
}

// GetAllMarketStatuses returns status for all tracked exchanges
func (s *MarketHoursService) GetAllMarketStatuses() []MarketStatus {
	statuses := make([]MarketStatus, 0, len(s.calendars))
	for code, cal := range s.calendars {
		statuses = append(statuses, MarketStatus{
			Exchange: code,
			Name:     cal.Name,
			IsOpen:   s.IsMarketOpen(code),
			Timezone: cal.TimezoneStr,
		})
	}
	return statuses
}
