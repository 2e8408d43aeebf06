// Package thsr drives the three-page booking form of the THSR online reservation site.
//
// Every page hands out values the next request has to echo back (session id, security code,
// opaque train values, membership radios), so each stage scrapes the previous response before
// building its own form body. Selectors and field names are the site's and are kept verbatim.
package thsr

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"thsr-booker/internal/components/assert"
	"thsr-booker/internal/components/telemetry"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_client_fetch  = "client.fetch"
	report_client_submit = "client.submit"
)

const (
	DefaultBaseUrl      = "https://irs.thsrc.com.tw"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRedirects = 20

	bookingPagePath  = "/IMINT/?locale=tw"
	refererPath      = "/IMINT/"
	searchSubmitPath = "/IMINT/;jsessionid=%s?wicket:interface=:0:BookingS1Form::IFormSubmitListener"
	trainSubmitPath  = "/IMINT/?wicket:interface=:1:BookingS2Form::IFormSubmitListener"
	ticketSubmitPath = "/IMINT/?wicket:interface=:2:BookingS3Form::IFormSubmitListener"
	sessionCookie    = "JSESSIONID"
)

var tracer = otel.Tracer("thsr-booker/thsr")

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout applies to each request, it defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxRedirects defaults to DefaultMaxRedirects.
	MaxRedirects int

	Prompt  Prompter
	Captcha CaptchaSolver
	Tel     telemetry.API
	// Dump receives every HTTP exchange when set.
	Dump telemetry.MessageOutput
}

// Client is one booking session. The cookie jar inside it carries the server session from
// page to page, so a Client must not be shared between bookings.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	prompt  Prompter
	captcha CaptchaSolver
	tel     telemetry.API
}

func browserHeaders(baseUrl *url.URL) map[string]string {
	return map[string]string{
		"Host":                      baseUrl.Host,
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:137.0) Gecko/20100101 Firefox/137.0",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "zh-TW,zh;q=0.8,en-US;q=0.5,en;q=0.3",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Referer":                   baseUrl.String() + refererPath,
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-Mode":            "no-cors",
	}
}

func NewClient(opts ClientOptions) (*Client, error) {
	assert.NotNil(opts.Prompt)
	assert.NotNil(opts.Captcha)
	assert.NotNil(opts.Tel)

	tel := telemetry.NewScopedAPI("thsr_booker", opts.Tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeaders(browserHeaders(baseUrl))
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(opts.MaxRedirects),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		baseUrl: baseUrl,
		http:    httpClient,
		prompt:  opts.Prompt,
		captcha: opts.Captcha,
		tel:     tel,
	}, nil
}

// resolveUrl turns a link found on a page into an absolute url on the booking site.
func (c *Client) resolveUrl(link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return c.baseUrl.ResolveReference(ref).String(), nil
}

// sessionId reads the server session id from the cookie jar.
func (c *Client) sessionId(res *resty.Response) string {
	for _, cookie := range res.Cookies() {
		if cookie.Name == sessionCookie {
			return cookie.Value
		}
	}
	jar := c.http.GetClient().Jar
	if jar == nil {
		return ""
	}
	for _, cookie := range jar.Cookies(c.baseUrl.JoinPath(refererPath)) {
		if cookie.Name == sessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// fetch makes a GET request, a non-2xx status is treated like a transport failure.
func (c *Client) fetch(ctx context.Context, stage Stage, link string) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("%s: %w", stage, err), link)
		return nil, fmt.Errorf("%s: fetch %s: %w", stage, link, err)
	}
	if res.IsError() {
		err = fmt.Errorf("%s: fetch %s: unexpected status %s", stage, link, res.Status())
		c.tel.ReportBroken(report_client_fetch, err)
		return nil, err
	}
	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, stage Stage, link string) (*resty.Response, *goquery.Document, error) {
	res, err := c.fetch(ctx, stage, link)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("%s: parse html: %w", stage, err))
		return nil, nil, fmt.Errorf("%s: parse page: %w", stage, err)
	}
	return res, doc, nil
}

// submit posts an already encoded form body and returns the page the server answers with.
// Error banners on that page become a *RejectedError.
func (c *Client) submit(ctx context.Context, stage Stage, link, body string) (*goquery.Document, error) {
	c.tel.ReportDebug("submit form", stage, link, body)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(body).
		Post(link)
	if err != nil {
		c.tel.ReportBroken(report_client_submit, fmt.Errorf("%s: %w", stage, err), link)
		return nil, fmt.Errorf("%s: submit: %w", stage, err)
	}
	if res.IsError() {
		err = fmt.Errorf("%s: submit: unexpected status %s", stage, res.Status())
		c.tel.ReportBroken(report_client_submit, err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_submit, fmt.Errorf("%s: parse html: %w", stage, err))
		return nil, fmt.Errorf("%s: parse response: %w", stage, err)
	}

	if message, rejected := ParseError(doc); rejected {
		c.tel.ReportWarning(report_client_submit, stage, message)
		return nil, &RejectedError{Stage: stage, Message: message}
	}
	return doc, nil
}

// warn reports a value that was replaced by its default and tells the human about it.
func (c *Client) warn(id, notice string, params ...any) {
	c.tel.ReportWarning(id, append([]any{notice}, params...)...)
	c.prompt.Print(notice)
}

func startStage(ctx context.Context, stage Stage) (context.Context, trace.Span) {
	return tracer.Start(ctx, string(stage))
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
