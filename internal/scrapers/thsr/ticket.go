package thsr

import (
	"fmt"
	"strings"
	"thsr-booker/internal/components/tableutil"
	"thsr-booker/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Ticket is the reservation as shown on the result page.
type Ticket struct {
	PnrCode         string
	Price           string
	PaymentDeadline string
	Date            string
	Departure       string
	Arrival         string
	From            string
	To              string
	Class           string
	// PassengerCount is the page's passenger annotation, printed right after the class.
	PassengerCount string
	Seats          []string
}

// ExtractTicket reads the result page. Any missing element is an *ExtractError, by then the
// reservation already exists.
func ExtractTicket(doc *goquery.Document) (Ticket, error) {
	var t Ticket
	fields := []struct {
		selector string
		name     string
		out      *string
	}{
		{"p.pnr-code span", "pnr code", &t.PnrCode},
		{"#setTrainTotalPriceValue", "price", &t.Price},
		{"span.status-unpaid span:nth-child(3)", "payment deadline", &t.PaymentDeadline},
		{"span.date span", "travel date", &t.Date},
		{"#setTrainDeparture0", "departure time", &t.Departure},
		{"#setTrainArrival0", "arrival time", &t.Arrival},
		{"p.departure-stn span", "departure station", &t.From},
		{"p.arrival-stn span", "arrival station", &t.To},
		{"div.uk-accordion-content span", "passenger count", &t.PassengerCount},
		{"p.info-data span", "seat class", &t.Class},
	}
	for _, f := range fields {
		text, ok := htmlutil.FirstText(doc.Selection, f.selector)
		if !ok || text == "" {
			return Ticket{}, &ExtractError{Field: f.name}
		}
		*f.out = text
	}

	t.Seats = htmlutil.AllText(doc.Selection, "div.seat-label span")
	if len(t.Seats) == 0 {
		return Ticket{}, &ExtractError{Field: "seats"}
	}
	return t, nil
}

// Summary is the itinerary as printed once the booking is done.
func (t Ticket) Summary() string {
	tw := tableutil.New()
	tw.SetTitle("Ticket Information")
	tw.AppendRows([]table.Row{
		{"Date", t.Date},
		{"Time", fmt.Sprintf("%s~%s", t.Departure, t.Arrival)},
		{"From", t.From},
		{"To", t.To},
		{"Class", t.Class + t.PassengerCount},
		{"Seats", strings.Join(t.Seats, ", ")},
	})

	var out strings.Builder
	out.WriteString("Please use the following PNR code for payment and picking up the ticket:\n")
	fmt.Fprintf(&out, "PNR Code: %s\n", t.PnrCode)
	fmt.Fprintf(&out, "Price: %s. Please pay before %s\n", t.Price, t.PaymentDeadline)
	out.WriteString(tw.Render())
	return out.String()
}
