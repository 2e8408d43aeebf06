package thsr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"thsr-booker/internal/components/tableutil"
	"thsr-booker/pkg/formutil"
	"thsr-booker/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	report_train_scrape         = "train.scrape"
	report_train_resolve_select = "train.resolve-select"
)

type Train struct {
	Id         int
	Departure  string
	Arrival    string
	TravelTime string
	// Discount is "" or the discount labels found on the listing, such as "(早鳥9折, 大學生5折)".
	Discount string
	// FormValue is the server's radio value for this train. It is echoed back as is.
	FormValue string
}

// ParseAlerts returns the notices shown above the train list.
func ParseAlerts(doc *goquery.Document) []string {
	return htmlutil.AllText(doc.Selection, "ul.alert-body > li")
}

func parseDiscount(item *goquery.Selection) string {
	var discounts []string
	if text, ok := htmlutil.FirstText(item, "p.early-bird span"); ok {
		discounts = append(discounts, text)
	}
	if text, ok := htmlutil.FirstText(item, "p.student span"); ok {
		discounts = append(discounts, text)
	}
	if len(discounts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(discounts, ", "))
}

func parseTrain(item *goquery.Selection) (Train, error) {
	input := item.Find("input").First()
	if input.Length() == 0 {
		return Train{}, &ScrapeError{Stage: StageTrain, Field: "train radio input"}
	}

	attrs := []string{"querycode", "querydeparture", "queryarrival", "queryestimatedtime", "value"}
	values := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		value, ok := input.Attr(attr)
		if !ok {
			return Train{}, &ScrapeError{Stage: StageTrain, Field: fmt.Sprintf("train %s attribute", attr)}
		}
		values[attr] = value
	}

	id, err := strconv.Atoi(strings.TrimSpace(values["querycode"]))
	if err != nil {
		return Train{}, &ScrapeError{
			Stage: StageTrain,
			Field: fmt.Sprintf("numeric train code (got %q)", values["querycode"]),
		}
	}

	return Train{
		Id:         id,
		Departure:  values["querydeparture"],
		Arrival:    values["queryarrival"],
		TravelTime: values["queryestimatedtime"],
		Discount:   parseDiscount(item),
		FormValue:  values["value"],
	}, nil
}

// ParseTrains returns every train listed on the page in page order.
func ParseTrains(doc *goquery.Document) ([]Train, error) {
	var trains []Train
	var err error
	doc.Find("label.result-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		var train Train
		train, err = parseTrain(item)
		if err != nil {
			return false
		}
		trains = append(trains, train)
		return true
	})
	if err != nil {
		return nil, err
	}
	return trains, nil
}

// TrainSelection is the body of the train selection form.
type TrainSelection struct {
	FormValue string
}

func (t TrainSelection) Form() formutil.Values {
	var v formutil.Values
	v.Add("TrainQueryDataViewPanel:TrainGroup", t.FormValue)
	v.Add("BookingS2Form:hf:0", "")
	return v
}

// RenderTrains lays out the train list with the 1-based indices the selection prompt takes.
func RenderTrains(trains []Train) string {
	tw := tableutil.New()
	tw.AppendHeader(table.Row{"#", "Train", "Departure", "Arrival", "Duration", "Discount"})
	for i, train := range trains {
		tw.AppendRow(table.Row{
			i + 1,
			train.Id,
			train.Departure,
			train.Arrival,
			train.TravelTime,
			train.Discount,
		})
	}
	return tw.Render()
}

func (c *Client) resolveTrain(override *int, trains []Train) (Train, error) {
	idx, err := Resolve(c.prompt, override, Field[int]{
		Hint:    "Select a train (default: 1):",
		Default: 1,
		Parse:   parseInt,
	})
	if err != nil {
		return trains[0], err
	}
	if idx < 1 || idx > len(trains) {
		c.warn(
			report_train_resolve_select,
			fmt.Sprintf("Invalid train %d, only %d listed, defaulting to 1.", idx, len(trains)),
		)
		return trains[0], nil
	}
	return trains[idx-1], nil
}

// SelectTrain runs the second stage against the page Search returned: it shows the alerts and
// trains on it, picks one and submits it. The returned page holds the passenger form.
func (c *Client) SelectTrain(ctx context.Context, page *goquery.Document, sel Selection) (doc *goquery.Document, err error) {
	ctx, span := startStage(ctx, StageTrain)
	defer func() { endStage(span, err) }()

	if alerts := ParseAlerts(page); len(alerts) > 0 {
		c.prompt.Print(strings.Join(alerts, "\n"))
	}

	trains, err := ParseTrains(page)
	if err != nil {
		c.tel.ReportBroken(report_train_scrape, err)
		return nil, err
	}
	if len(trains) == 0 {
		err = &ScrapeError{Stage: StageTrain, Field: "any available train"}
		c.tel.ReportBroken(report_train_scrape, err)
		return nil, err
	}

	c.prompt.Print(RenderTrains(trains))
	train, err := c.resolveTrain(sel.Train, trains)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	c.tel.ReportDebug("selected train", train.Id, train.Departure)

	return c.submit(ctx, StageTrain, trainSubmitPath, TrainSelection{FormValue: train.FormValue}.Form().Encode())
}
