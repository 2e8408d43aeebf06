package thsr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"thsr-booker/internal/reference"
	"thsr-booker/pkg/formutil"
	"thsr-booker/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_search_scrape          = "search.scrape"
	report_search_resolve_station = "search.resolve-station"
	report_search_resolve_date    = "search.resolve-date"
	report_search_resolve_time    = "search.resolve-time"
	report_search_resolve_count   = "search.resolve-count"
	report_search_resolve_seat    = "search.resolve-seat"
	report_search_resolve_class   = "search.resolve-class"
)

const MaxTicketCount = 10

// PassengerType is a ticket category, its value is the letter the search form suffixes ticket
// counts with.
type PassengerType byte

const (
	Adult    PassengerType = 'F'
	Child    PassengerType = 'H'
	Disabled PassengerType = 'W'
	Elder    PassengerType = 'E'
	College  PassengerType = 'P'
)

// passengerRows is the order of the ticketPanel rows on the search form.
var passengerRows = []PassengerType{Adult, Child, Disabled, Elder, College}

func (p PassengerType) String() string {
	switch p {
	case Adult:
		return "Adult"
	case Child:
		return "Child"
	case Disabled:
		return "Disabled"
	case Elder:
		return "Elder"
	case College:
		return "College"
	}
	return fmt.Sprintf("PassengerType(%c)", byte(p))
}

const (
	SeatNoPreference = 0
	SeatWindow       = 1
	SeatAisle        = 2

	ClassStandard = 0
	ClassBusiness = 1
)

// SearchConstraints are the values scraped off the booking page before anything is submitted.
type SearchConstraints struct {
	SessionId     string
	CaptchaUrl    string
	BookingMethod string
	TripType      int
	StartDate     string
	EndDate       string
}

// BookingCriteria is the body of the search form.
type BookingCriteria struct {
	FromStation   int
	ToStation     int
	BookingMethod string
	// TripType is 0 for one-way and 1 for round trip.
	TripType     int
	Date         string
	TimeSlot     string
	SecurityCode string
	SeatPrefer   int
	ClassType    int
	Tickets      map[PassengerType]int
}

// DefaultBookingCriteria is what gets submitted when the caller overrides nothing and accepts
// every default.
func DefaultBookingCriteria(c SearchConstraints) BookingCriteria {
	timeSlot, _ := reference.TimeSlot(reference.DefaultTimeSlot)
	return BookingCriteria{
		FromStation:   reference.DefaultFromStation,
		ToStation:     reference.DefaultToStation,
		BookingMethod: c.BookingMethod,
		TripType:      c.TripType,
		Date:          c.EndDate,
		TimeSlot:      timeSlot,
		SeatPrefer:    SeatNoPreference,
		ClassType:     ClassStandard,
		Tickets:       map[PassengerType]int{Adult: 1},
	}
}

func ticketAmount(count int, kind PassengerType) string {
	return fmt.Sprintf("%d%c", count, byte(kind))
}

func (b BookingCriteria) Form() formutil.Values {
	var v formutil.Values
	v.Add("selectStartStation", strconv.Itoa(b.FromStation))
	v.Add("selectDestinationStation", strconv.Itoa(b.ToStation))
	v.Add("bookingMethod", b.BookingMethod)
	v.Add("tripCon:typesoftrip", strconv.Itoa(b.TripType))
	v.Add("toTimeInputField", b.Date)
	v.Add("toTimeTable", b.TimeSlot)
	v.Add("homeCaptcha:securityCode", b.SecurityCode)
	v.Add("seatCon:seatRadioGroup", strconv.Itoa(b.SeatPrefer))
	v.Add("BookingS1Form:hf:0", "")
	v.Add("trainCon:trainRadioGroup", strconv.Itoa(b.ClassType))
	for i, kind := range passengerRows {
		v.Add(
			fmt.Sprintf("ticketPanel:rows:%d:ticketAmount", i),
			ticketAmount(b.Tickets[kind], kind),
		)
	}
	return v
}

// ParseSearchPage scrapes the booking page, everything it reads is required.
func ParseSearchPage(doc *goquery.Document) (SearchConstraints, error) {
	var c SearchConstraints
	missing := func(field string) (SearchConstraints, error) {
		return SearchConstraints{}, &ScrapeError{Stage: StageSearch, Field: field}
	}

	captcha, ok := htmlutil.FirstAttr(doc.Selection, "#BookingS1Form_homeCaptcha_passCode", "src")
	if !ok {
		return missing("security code image")
	}
	c.CaptchaUrl = captcha

	method, ok := htmlutil.FirstAttr(doc.Selection, "input[name='bookingMethod'][checked]", "value")
	if !ok {
		return missing("checked booking method")
	}
	c.BookingMethod = method

	tripType, ok := htmlutil.FirstAttr(
		doc.Selection,
		"#BookingS1Form_tripCon_typesoftrip [selected='selected']",
		"value",
	)
	if !ok {
		return missing("selected trip type")
	}
	parsedTripType, err := strconv.Atoi(tripType)
	if err != nil {
		return missing(fmt.Sprintf("numeric trip type (got %q)", tripType))
	}
	c.TripType = parsedTripType

	c.StartDate, ok = htmlutil.FirstAttr(doc.Selection, "#toTimeInputField", "date")
	if !ok {
		return missing("earliest bookable date")
	}
	c.EndDate, ok = htmlutil.FirstAttr(doc.Selection, "#toTimeInputField", "limit")
	if !ok {
		return missing("latest bookable date")
	}

	return c, nil
}

// NormalizeDate zero pads a "YYYY/M/D" date into "YYYY/MM/DD". Anything else is not ok.
func NormalizeDate(input string) (string, bool) {
	parts := strings.Split(input, "/")
	if len(parts) != 3 {
		return "", false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", false
	}
	if year < 1000 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d/%02d/%02d", year, month, day), true
}

// ResolveDate returns the travel date to submit. An empty input means the latest bookable date,
// a malformed or out of window input is not ok and also falls back to it.
func ResolveDate(input, startDate, endDate string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return endDate, true
	}
	date, ok := NormalizeDate(input)
	if !ok {
		return endDate, false
	}
	// zero padded dates compare correctly as strings
	if date < startDate || date > endDate {
		return endDate, false
	}
	return date, true
}

// ResolveTimeSlot maps a 1-based time table index to its token, falling back to the default
// slot when out of range.
func ResolveTimeSlot(idx int) (string, bool) {
	token, ok := reference.TimeSlot(idx)
	if !ok {
		token, _ = reference.TimeSlot(reference.DefaultTimeSlot)
		return token, false
	}
	return token, true
}

// ClampCount falls back to a single ticket for counts outside 0..MaxTicketCount.
func ClampCount(count int) (int, bool) {
	if count < 0 || count > MaxTicketCount {
		return 1, false
	}
	return count, true
}

func ResolveSeatPrefer(seat int) (int, bool) {
	if seat < SeatNoPreference || seat > SeatAisle {
		return SeatNoPreference, false
	}
	return seat, true
}

func ResolveClassType(class int) (int, bool) {
	if class < ClassStandard || class > ClassBusiness {
		return ClassStandard, false
	}
	return class, true
}

func (c *Client) resolveStation(override *int, role string, def int) (int, error) {
	if override == nil {
		c.prompt.Print(reference.RenderStations())
	}
	idx, err := Resolve(c.prompt, override, Field[int]{
		Hint:    fmt.Sprintf("Please select %s station (default: %d):", role, def),
		Default: def,
		Parse:   parseInt,
	})
	if err != nil {
		return def, err
	}
	if _, ok := reference.Station(idx); !ok {
		name, _ := reference.Station(def)
		c.warn(
			report_search_resolve_station,
			fmt.Sprintf("Invalid %s station %d, defaulting to %s (%d).", role, idx, name, def),
		)
		return def, nil
	}
	return idx, nil
}

func (c *Client) resolveDate(override *string, constraints SearchConstraints) (string, error) {
	input, err := Resolve(c.prompt, override, Field[string]{
		Hint: fmt.Sprintf(
			"Please select a date between %s and %s (default to latest: %s):",
			constraints.StartDate, constraints.EndDate, constraints.EndDate,
		),
		Default: constraints.EndDate,
		Parse:   parseString,
	})
	if err != nil {
		return constraints.EndDate, err
	}
	date, ok := ResolveDate(input, constraints.StartDate, constraints.EndDate)
	if !ok {
		c.warn(
			report_search_resolve_date,
			fmt.Sprintf(
				"Invalid date or outside booking range, defaulting to latest date: %s",
				constraints.EndDate,
			),
			input,
		)
	}
	return date, nil
}

func (c *Client) resolveTimeSlot(override *int) (string, error) {
	if override == nil {
		c.prompt.Print(reference.RenderTimeTable())
	}
	idx, err := Resolve(c.prompt, override, Field[int]{
		Hint:    fmt.Sprintf("Select departure time (default: %d):", reference.DefaultTimeSlot),
		Default: reference.DefaultTimeSlot,
		Parse:   parseInt,
	})
	token, _ := ResolveTimeSlot(reference.DefaultTimeSlot)
	if err != nil {
		return token, err
	}
	token, ok := ResolveTimeSlot(idx)
	if !ok {
		c.warn(
			report_search_resolve_time,
			fmt.Sprintf("Invalid time %d, defaulting to %d.", idx, reference.DefaultTimeSlot),
		)
	}
	return token, nil
}

func (c *Client) resolveCount(override *int, kind PassengerType) (int, error) {
	count, err := Resolve(c.prompt, override, Field[int]{
		Hint: fmt.Sprintf(
			"Please select the number (0~%d) of tickets for %s (default: 1)",
			MaxTicketCount, kind,
		),
		Default: 1,
		Parse:   parseInt,
	})
	if err != nil {
		return 1, err
	}
	clamped, ok := ClampCount(count)
	if !ok {
		c.warn(
			report_search_resolve_count,
			fmt.Sprintf("Invalid %s ticket count %d, defaulting to 1.", kind, count),
		)
	}
	return clamped, nil
}

func (c *Client) resolveSeatPrefer(override *int) (int, error) {
	seat, err := Resolve(c.prompt, override, Field[int]{
		Hint:    "Please select seat preference (0: any, 1: window, 2: aisle) (default: 0):",
		Default: SeatNoPreference,
		Parse:   parseInt,
	})
	if err != nil {
		return SeatNoPreference, err
	}
	resolved, ok := ResolveSeatPrefer(seat)
	if !ok {
		c.warn(report_search_resolve_seat, fmt.Sprintf("Invalid seat preference %d, defaulting to any.", seat))
	}
	return resolved, nil
}

func (c *Client) resolveClassType(override *int) (int, error) {
	class, err := Resolve(c.prompt, override, Field[int]{
		Hint:    "Please select class type (0: standard, 1: business) (default: 0):",
		Default: ClassStandard,
		Parse:   parseInt,
	})
	if err != nil {
		return ClassStandard, err
	}
	resolved, ok := ResolveClassType(class)
	if !ok {
		c.warn(report_search_resolve_class, fmt.Sprintf("Invalid class type %d, defaulting to standard.", class))
	}
	return resolved, nil
}

// resolveCriteria fills in every search form field from the selection, asking for whatever is
// missing, in the order the booking page lays them out.
func (c *Client) resolveCriteria(sel Selection, constraints SearchConstraints) (BookingCriteria, error) {
	criteria := DefaultBookingCriteria(constraints)

	var err error
	criteria.FromStation, err = c.resolveStation(sel.From, "start", reference.DefaultFromStation)
	if err != nil {
		return criteria, err
	}
	criteria.ToStation, err = c.resolveStation(sel.To, "destination", reference.DefaultToStation)
	if err != nil {
		return criteria, err
	}
	criteria.Date, err = c.resolveDate(sel.Date, constraints)
	if err != nil {
		return criteria, err
	}
	criteria.TimeSlot, err = c.resolveTimeSlot(sel.TimeSlot)
	if err != nil {
		return criteria, err
	}

	// the adult count is only asked for when no count at all was given, a lone student count
	// keeps the default single adult ticket
	if sel.AdultCount == nil && sel.StudentCount == nil {
		criteria.Tickets[Adult], err = c.resolveCount(nil, Adult)
		if err != nil {
			return criteria, err
		}
	}
	if sel.AdultCount != nil {
		criteria.Tickets[Adult], err = c.resolveCount(sel.AdultCount, Adult)
		if err != nil {
			return criteria, err
		}
	}
	if sel.StudentCount != nil {
		criteria.Tickets[College], err = c.resolveCount(sel.StudentCount, College)
		if err != nil {
			return criteria, err
		}
	}

	criteria.SeatPrefer, err = c.resolveSeatPrefer(sel.SeatPrefer)
	if err != nil {
		return criteria, err
	}
	criteria.ClassType, err = c.resolveClassType(sel.ClassType)
	if err != nil {
		return criteria, err
	}
	return criteria, nil
}

// Search runs the first stage: it opens a session on the booking page, resolves the search
// criteria, has the security code solved and submits the search. The returned page lists the
// available trains.
func (c *Client) Search(ctx context.Context, sel Selection) (doc *goquery.Document, err error) {
	ctx, span := startStage(ctx, StageSearch)
	defer func() { endStage(span, err) }()

	c.prompt.Print("Requesting booking page...")
	res, page, err := c.fetchPage(ctx, StageSearch, bookingPagePath)
	if err != nil {
		return nil, err
	}

	sessionId := c.sessionId(res)
	if sessionId == "" {
		err = &ScrapeError{Stage: StageSearch, Field: sessionCookie + " cookie"}
		c.tel.ReportBroken(report_search_scrape, err)
		return nil, err
	}

	constraints, err := ParseSearchPage(page)
	if err != nil {
		c.tel.ReportBroken(report_search_scrape, err)
		return nil, err
	}
	constraints.SessionId = sessionId
	c.tel.ReportDebug("search constraints", constraints)

	captchaUrl, err := c.resolveUrl(constraints.CaptchaUrl)
	if err != nil {
		c.tel.ReportBroken(report_search_scrape, fmt.Errorf("security code url: %w", err))
		return nil, fmt.Errorf("search: security code url: %w", err)
	}
	image, err := c.fetch(ctx, StageSearch, captchaUrl)
	if err != nil {
		return nil, err
	}

	criteria, err := c.resolveCriteria(sel, constraints)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	criteria.SecurityCode, err = c.captcha.Solve(ctx, image.Body())
	if err != nil {
		return nil, fmt.Errorf("search: security code: %w", err)
	}

	return c.submit(
		ctx,
		StageSearch,
		fmt.Sprintf(searchSubmitPath, sessionId),
		criteria.Form().Encode(),
	)
}
