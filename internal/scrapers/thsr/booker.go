package thsr

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_booker_extract_ticket = "booker.extract-ticket"
	report_booker_metrics        = "booker.metrics"
)

const (
	OutcomeBooked   = "booked"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var meter = otel.Meter("thsr-booker/thsr")

// Outcome classifies the error Book returned for metrics and exit messages.
func Outcome(err error) string {
	var rejected *RejectedError
	var extract *ExtractError
	switch {
	case err == nil, errors.As(err, &extract):
		return OutcomeBooked
	case errors.As(err, &rejected):
		return OutcomeRejected
	}
	return OutcomeFailed
}

func (c *Client) countBooking(ctx context.Context, err error) {
	counter, cerr := meter.Int64Counter(
		"thsr.bookings",
		metric.WithDescription("Booking attempts by outcome."),
	)
	if cerr != nil {
		c.tel.ReportBroken(report_booker_metrics, cerr)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", Outcome(err))))
}

// Book runs every stage in order and stops at the first error.
//
// An *ExtractError means the reservation was made but the result page could not be read, the
// returned Ticket is then empty and the PNR code has to be looked up on the site.
func (c *Client) Book(ctx context.Context, sel Selection) (ticket Ticket, err error) {
	ctx, span := tracer.Start(ctx, "book")
	defer func() {
		c.countBooking(ctx, err)
		endStage(span, err)
	}()

	page, err := c.Search(ctx, sel)
	if err != nil {
		return Ticket{}, err
	}
	page, err = c.SelectTrain(ctx, page, sel)
	if err != nil {
		return Ticket{}, err
	}
	page, err = c.Confirm(ctx, page, sel)
	if err != nil {
		return Ticket{}, err
	}

	ticket, err = ExtractTicket(page)
	if err != nil {
		c.tel.ReportBroken(report_booker_extract_ticket, err)
		return Ticket{}, err
	}
	return ticket, nil
}
