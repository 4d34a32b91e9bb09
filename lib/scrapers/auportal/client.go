package auportal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"auportal-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/auportal")

const (
	defaultLoginPath  = "/home/index.php"
	defaultSubmitPath = "/home/students_corner.php"

	captchaField      = "security_code_student"
	loginButtonField  = "gos"
	loginButtonValue  = "Login"
	loginFailedMarker = "window.location='index.php'"
)

// Client talks to the student portal. It holds no per-session state:
// cookies captured from the login page are passed back in explicitly on
// every follow-up request, so one Client serves any number of sessions.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	loginPath  string
	submitPath string
	loginUrl   *url.URL
}

type ClientOptions struct {
	BaseUrl string
	// overrides for the portal entry and submit pages, defaults match
	// the upstream portal
	LoginPath  string
	SubmitPath string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/auportal/http")

	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = defaultLoginPath
	}
	submitPath := opts.SubmitPath
	if submitPath == "" {
		submitPath = defaultSubmitPath
	}

	c := &Client{
		BaseUrl:    baseUrl,
		Http:       client,
		loginPath:  loginPath,
		submitPath: submitPath,
		loginUrl:   baseUrl.ResolveReference(&url.URL{Path: loginPath}),
	}
	return c, nil
}

// LoginPage is the anti-automation state the portal hands out on its
// entry page. All of it must be echoed back on submit.
type LoginPage struct {
	Cookies         map[string]string
	HiddenFields    map[string]string
	CaptchaAudioUrl string
}

func classifyNetError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", UpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", UpstreamUnavailable, err)
}

func (c *Client) FetchLoginPage(ctx context.Context) (LoginPage, error) {
	ctx, span := tracer.Start(ctx, "client:FetchLoginPage")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.loginPath)
	if err != nil {
		err = classifyNetError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return LoginPage{}, err
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("%w: status %d from login page", UpstreamError, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected login page status")
		return LoginPage{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login page html")
		return LoginPage{}, err
	}

	page := LoginPage{
		Cookies:      map[string]string{},
		HiddenFields: map[string]string{},
	}
	for _, cookie := range res.Cookies() {
		page.Cookies[cookie.Name] = cookie.Value
	}
	doc.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		value := input.AttrOr("value", "")
		if name != "" && value != "" {
			page.HiddenFields[name] = value
		}
	})
	page.CaptchaAudioUrl = c.captchaAudioUrl(doc)

	return page, nil
}

// captchaAudioUrl finds the audio challenge source and makes it
// absolute. Relative paths resolve against the login page itself, which
// covers both the root-relative and page-relative forms the portal has
// been seen serving.
func (c *Client) captchaAudioUrl(doc *goquery.Document) string {
	src := doc.Find("audio source").AttrOr("src", "")
	if src == "" {
		src = doc.Find("audio").AttrOr("src", "")
	}
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return c.loginUrl.ResolveReference(ref).String()
}

func (c *Client) FetchCaptchaAudio(ctx context.Context, audioUrl string, cookies map[string]string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCaptchaAudio")
	defer span.End()

	req := c.Http.R().SetContext(ctx)
	for name, value := range cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	res, err := req.Get(audioUrl)
	if err != nil {
		err = classifyNetError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch captcha audio")
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("%w: status %d fetching captcha audio", UpstreamError, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected captcha audio status")
		return nil, err
	}
	return res.Body(), nil
}

type SubmitRequest struct {
	HiddenFields map[string]string
	RegisterNo   string
	Dob          string
	// empty on the legacy path, which posts without a captcha answer
	CaptchaSolution string
	Cookies         map[string]string
}

// SubmitLogin replays the full login form: hidden anti-forgery fields,
// credentials and the captcha answer, under the cookies captured at
// init. The portal reports failure through a client-side redirect
// script rather than a status code.
func (c *Client) SubmitLogin(ctx context.Context, submit SubmitRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:SubmitLogin")
	defer span.End()

	form := map[string]string{}
	for name, value := range submit.HiddenFields {
		form[name] = value
	}
	form["register_no"] = submit.RegisterNo
	form["dob"] = submit.Dob
	if submit.CaptchaSolution != "" {
		form[captchaField] = submit.CaptchaSolution
	}
	form[loginButtonField] = loginButtonValue

	req := c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		SetHeader("Origin", fmt.Sprintf("%s://%s", c.BaseUrl.Scheme, c.BaseUrl.Host))
	for name, value := range submit.Cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}

	res, err := req.Post(c.submitPath)
	if err != nil {
		err = classifyNetError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("%w: status %d from login submit", UpstreamError, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected login submit status")
		return nil, err
	}
	if bytes.Contains(res.Body(), []byte(loginFailedMarker)) {
		span.SetStatus(codes.Error, AuthenticationFailed.Error())
		return nil, AuthenticationFailed
	}
	return res.Body(), nil
}
