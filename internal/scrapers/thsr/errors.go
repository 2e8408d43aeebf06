package thsr

import (
	"fmt"
	"strings"
	"thsr-booker/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type Stage string

const (
	StageSearch  Stage = "search"
	StageTrain   Stage = "train"
	StageConfirm Stage = "confirm"
)

const errorBannerSelector = "span.feedbackPanelERROR"

// ParseError is the single place every stage checks a response for a rejected submission. It
// is ok as soon as the page has an error banner, even a blank one, and returns the text of the
// non-blank banners joined by newlines.
func ParseError(doc *goquery.Document) (string, bool) {
	if doc.Find(errorBannerSelector).Length() == 0 {
		return "", false
	}
	return strings.Join(htmlutil.AllText(doc.Selection, errorBannerSelector), "\n"), true
}

// RejectedError is returned when the server answers a submission with error banners.
type RejectedError struct {
	Stage   Stage
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by the booking site without a message", e.Stage)
	}
	return e.Message
}

// ScrapeError is returned when a required element or attribute is missing from a page.
type ScrapeError struct {
	Stage Stage
	Field string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: could not find %s on page", e.Stage, e.Field)
}

// ExtractError is returned when the booking went through but the confirmation page could not
// be read. The reservation exists on the server at this point.
type ExtractError struct {
	Field string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("booking completed but the result page could not be read: missing %s", e.Field)
}
