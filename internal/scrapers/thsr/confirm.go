package thsr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"thsr-booker/pkg/formutil"
	"thsr-booker/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_confirm_scrape        = "confirm.scrape"
	report_confirm_passenger_ids = "confirm.passenger-ids"
)

const (
	memberRadioGroup       = "TicketMemberSystemInputPanel:TakerMemberSystemDataView:memberSystemRadioGroup"
	memberRadioSelector    = "#memberSystemRadio1"
	nonMemberRadioSelector = "#memberSystemRadio3"

	earlyBirdMarkerSelector = ".superEarlyBird"
	passengerFieldPrefix    = "TicketPassengerInfoInputPanel:passengerDataView:%d:passengerDataView2:"
)

// IdKindNationalId is the passenger id kind for a national id card, 1 would be a passport.
const IdKindNationalId = 0

// Confirmation is the base body of the passenger form.
type Confirmation struct {
	PersonalId string
	// MemberRadio is the value of the membership radio the page offers for the chosen mode.
	MemberRadio string
}

func (c Confirmation) Form() formutil.Values {
	var v formutil.Values
	v.Add("dummyId", c.PersonalId)
	v.Add("dummyPhone", "")
	v.Add(memberRadioGroup, c.MemberRadio)
	v.Add("BookingS3FormSP:hf:0", "")
	v.Add("idInputRadio", strconv.Itoa(IdKindNationalId))
	v.Add("diffOver", "1")
	v.Add("email", "")
	v.Add("agree", "on")
	v.Add("isGoBackM", "")
	v.Add("backHome", "")
	v.Add("TgoError", "1")
	return v
}

// MembershipAddendum is only sent when the booking is made as a member, the membership number
// is the personal id.
func MembershipAddendum(personalId string) formutil.Values {
	var v formutil.Values
	v.Add(memberRadioGroup+":memberShipNumber", personalId)
	v.Add(memberRadioGroup+":memberSystemShipCheckBox", "on")
	return v
}

// EarlyBirdPassenger is one row of the early bird passenger table.
type EarlyBirdPassenger struct {
	TypeCode string
	IdNumber string
}

// EarlyBirdPassengers are keyed by their row index on the form.
type EarlyBirdPassengers []EarlyBirdPassenger

func (p EarlyBirdPassengers) Form() formutil.Values {
	var v formutil.Values
	for i, passenger := range p {
		prefix := fmt.Sprintf(passengerFieldPrefix, i)
		v.Add(prefix+"passengerDataLastName", "")
		v.Add(prefix+"passengerDataFirstName", "")
		v.Add(prefix+"passengerDataTypeName", passenger.TypeCode)
		v.Add(prefix+"passengerDataIdNumber", passenger.IdNumber)
		v.Add(prefix+"passengerDataInputChoice", strconv.Itoa(IdKindNationalId))
	}
	return v
}

// EarlyBirdRowCount is the number of discounted seats on the passenger form, each needs its
// own passenger row. Markers without any text are not counted. Zero means the form has no
// early bird section.
func EarlyBirdRowCount(doc *goquery.Document) int {
	count := 0
	doc.Find(earlyBirdMarkerSelector).Each(func(_ int, s *goquery.Selection) {
		if htmlutil.GetText(s.Get(0)) != "" {
			count++
		}
	})
	return count
}

// earlyBirdTypeCode reads the passenger type of the first row, every row shares it.
func earlyBirdTypeCode(doc *goquery.Document) (string, error) {
	selector := fmt.Sprintf("input[name='"+passengerFieldPrefix+"passengerDataTypeName']", 0)
	code, ok := htmlutil.FirstAttr(doc.Selection, selector, "value")
	if !ok {
		return "", &ScrapeError{Stage: StageConfirm, Field: "early bird passenger type"}
	}
	return code, nil
}

// BuildEarlyBirdRows gives each id its own row, in order, all of the same passenger type.
func BuildEarlyBirdRows(typeCode string, ids []string) EarlyBirdPassengers {
	rows := make(EarlyBirdPassengers, len(ids))
	for i, id := range ids {
		rows[i] = EarlyBirdPassenger{TypeCode: typeCode, IdNumber: id}
	}
	return rows
}

// collectPassengerIds asks for one id per early bird seat. The first one defaults to the
// personal id, the others are asked for again until they are not blank.
func (c *Client) collectPassengerIds(count int, personalId string) ([]string, error) {
	ids := make([]string, 0, count)

	first, err := Resolve(c.prompt, nil, Field[string]{
		Hint:    fmt.Sprintf("Passenger's ID number (default: %s):", personalId),
		Default: personalId,
		Parse:   parseString,
	})
	if err != nil {
		return nil, err
	}
	ids = append(ids, first)

	for i := 1; i < count; i++ {
		for {
			answer, err := c.prompt.Prompt(fmt.Sprintf(
				"Input passenger's ID number for passenger %d\n(ID change is not allowed after input!):",
				i+1,
			))
			if err != nil {
				c.tel.ReportWarning(report_confirm_passenger_ids, "input ended early", i+1, count)
				return nil, fmt.Errorf("passenger %d of %d: %w", i+1, count, err)
			}
			answer = strings.TrimSpace(answer)
			if answer != "" {
				ids = append(ids, answer)
				break
			}
			c.prompt.Print("ID should not be empty!")
		}
	}
	return ids, nil
}

func (c *Client) resolveMembership(page *goquery.Document, override *bool) (bool, string, error) {
	useMembership, err := Resolve(c.prompt, override, Field[bool]{
		Hint:    "Use membership (y/n, default: n):",
		Default: false,
		Parse:   parseYesNo,
	})
	if err != nil {
		return false, "", err
	}

	selector := nonMemberRadioSelector
	if useMembership {
		selector = memberRadioSelector
	}
	radio, ok := htmlutil.FirstAttr(page.Selection, selector, "value")
	if !ok {
		return false, "", &ScrapeError{Stage: StageConfirm, Field: fmt.Sprintf("membership radio %s", selector)}
	}
	return useMembership, radio, nil
}

// Confirm runs the last stage against the page SelectTrain returned: it fills in the passenger
// form, including the per-seat ids early bird fares need, and submits it. The returned page is
// the booking result.
func (c *Client) Confirm(ctx context.Context, page *goquery.Document, sel Selection) (doc *goquery.Document, err error) {
	ctx, span := startStage(ctx, StageConfirm)
	defer func() { endStage(span, err) }()

	personalId, err := Resolve(c.prompt, sel.PersonalId, Field[string]{
		Hint:    "Input personal ID:",
		Default: "",
		Parse:   parseString,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	personalId = strings.TrimSpace(personalId)

	useMembership, radio, err := c.resolveMembership(page, sel.UseMembership)
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		c.tel.ReportBroken(report_confirm_scrape, err)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	base := Confirmation{PersonalId: personalId, MemberRadio: radio}.Form().Encode()

	var earlyBird string
	if rows := EarlyBirdRowCount(page); rows > 0 {
		typeCode, err := earlyBirdTypeCode(page)
		if err != nil {
			c.tel.ReportBroken(report_confirm_scrape, err)
			return nil, err
		}
		ids, err := c.collectPassengerIds(rows, personalId)
		if err != nil {
			return nil, fmt.Errorf("confirm: %w", err)
		}
		earlyBird = BuildEarlyBirdRows(typeCode, ids).Form().Encode()
	}

	var membership string
	if useMembership {
		membership = MembershipAddendum(personalId).Encode()
	}

	c.prompt.Print("Booking...")
	return c.submit(ctx, StageConfirm, ticketSubmitPath, formutil.Join(base, earlyBird, membership))
}
