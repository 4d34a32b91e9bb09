package auportal

import (
	"context"
	"fmt"
	"log/slog"

	scraper "auportal-backend/lib/scrapers/auportal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/auportal")

var (
	SessionNotFound         = fmt.Errorf("invalid session")
	SessionExpiredOrInvalid = fmt.Errorf("session expired, please refresh and try again")
	NoCaptchaAvailable      = fmt.Errorf("no audio captcha available")
	InvalidRegisterNumber   = fmt.Errorf("invalid register number")
	InvalidDateOfBirth      = fmt.Errorf("invalid date of birth format, use DD-MM-YYYY")
)

// Service drives the three phase captcha login workflow: init a
// pseudo-session against the portal, proxy the audio challenge, then
// replay the full login with the solved captcha and turn the response
// into structured records.
type Service struct {
	client *scraper.Client
	store  *Store
}

func NewService(client *scraper.Client, store *Store) Service {
	return Service{
		client: client,
		store:  store,
	}
}

type InitSessionResult struct {
	SessionId       string `json:"session_id"`
	CaptchaAudioUrl string `json:"captcha_audio_url"`
	HasAudioCaptcha bool   `json:"has_audio_captcha"`
}

func (s Service) InitSession(ctx context.Context) (InitSessionResult, error) {
	ctx, span := tracer.Start(ctx, "InitSession")
	defer span.End()

	page, err := s.client.FetchLoginPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return InitSessionResult{}, err
	}

	id := s.store.Create(page.Cookies, page.HiddenFields, page.CaptchaAudioUrl)
	slog.InfoContext(
		ctx, "session initialized",
		"session_id", id,
		"has_audio_captcha", page.CaptchaAudioUrl != "",
	)

	return InitSessionResult{
		SessionId:       id,
		CaptchaAudioUrl: page.CaptchaAudioUrl,
		HasAudioCaptcha: page.CaptchaAudioUrl != "",
	}, nil
}

// CaptchaAudio proxies the challenge audio for a live session. A side
// query: it does not advance or consume the session.
func (s Service) CaptchaAudio(ctx context.Context, sessionId string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "CaptchaAudio")
	defer span.End()

	session, ok := s.store.Get(sessionId)
	if !ok {
		span.SetStatus(codes.Error, SessionNotFound.Error())
		return nil, SessionNotFound
	}
	if session.CaptchaAudioUrl == "" {
		span.SetStatus(codes.Error, NoCaptchaAvailable.Error())
		return nil, NoCaptchaAvailable
	}

	audio, err := s.client.FetchCaptchaAudio(ctx, session.CaptchaAudioUrl, session.Cookies)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to proxy captcha audio")
		return nil, err
	}
	return audio, nil
}

type FetchDataRequest struct {
	SessionId       string `json:"session_id"`
	RegisterNo      string `json:"register_no"`
	Dob             string `json:"dob"`
	CaptchaSolution string `json:"captcha_solution"`
}

type StudentData struct {
	Profile      scraper.Profile  `json:"profile"`
	ExamSchedule []scraper.Record `json:"exam_schedule"`
	Assessment   []scraper.Record `json:"assessment"`
	ExamResult   []scraper.Record `json:"exam_result"`
	Internals    []scraper.Record `json:"internals"`
}

// FetchData finishes the workflow: validate, replay the login with the
// solved captcha, parse the result and retire the session. Validation
// failures return before any network traffic.
func (s Service) FetchData(ctx context.Context, req FetchDataRequest) (StudentData, error) {
	ctx, span := tracer.Start(ctx, "FetchData")
	defer span.End()

	if _, ok := s.store.Get(req.SessionId); !ok {
		span.SetStatus(codes.Error, SessionExpiredOrInvalid.Error())
		return StudentData{}, SessionExpiredOrInvalid
	}
	if !ValidRegisterNo(req.RegisterNo) {
		span.SetStatus(codes.Error, InvalidRegisterNumber.Error())
		return StudentData{}, InvalidRegisterNumber
	}
	if !ValidDob(req.Dob) {
		span.SetStatus(codes.Error, InvalidDateOfBirth.Error())
		return StudentData{}, InvalidDateOfBirth
	}

	// taken out of the store for the duration of the submit, a
	// concurrent submit on the same id loses here
	session, ok := s.store.Consume(req.SessionId)
	if !ok {
		span.SetStatus(codes.Error, SessionExpiredOrInvalid.Error())
		return StudentData{}, SessionExpiredOrInvalid
	}

	html, err := s.client.SubmitLogin(ctx, scraper.SubmitRequest{
		HiddenFields:    session.HiddenFields,
		RegisterNo:      req.RegisterNo,
		Dob:             req.Dob,
		CaptchaSolution: req.CaptchaSolution,
		Cookies:         session.Cookies,
	})
	if err != nil {
		s.store.Restore(req.SessionId, session)
		span.RecordError(err)
		span.SetStatus(codes.Error, "login submit failed")
		return StudentData{}, err
	}

	data, err := s.assemble(ctx, html)
	if err != nil {
		s.store.Restore(req.SessionId, session)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse student data")
		return StudentData{}, err
	}

	s.store.Remove(req.SessionId)
	return data, nil
}

// LegacyFetch is the old single-call path with no captcha phase. It
// only works when the portal does not enforce a captcha on the submit
// endpoint, but it is kept for callers that predate the session flow.
func (s Service) LegacyFetch(ctx context.Context, registerNo, dob string) (StudentData, error) {
	ctx, span := tracer.Start(ctx, "LegacyFetch")
	defer span.End()

	if !ValidRegisterNo(registerNo) {
		span.SetStatus(codes.Error, InvalidRegisterNumber.Error())
		return StudentData{}, InvalidRegisterNumber
	}
	if !ValidDob(dob) {
		span.SetStatus(codes.Error, InvalidDateOfBirth.Error())
		return StudentData{}, InvalidDateOfBirth
	}

	page, err := s.client.FetchLoginPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return StudentData{}, err
	}

	html, err := s.client.SubmitLogin(ctx, scraper.SubmitRequest{
		HiddenFields: page.HiddenFields,
		RegisterNo:   registerNo,
		Dob:          dob,
		Cookies:      page.Cookies,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login submit failed")
		return StudentData{}, err
	}

	return s.assemble(ctx, html)
}

func (s Service) assemble(ctx context.Context, html []byte) (StudentData, error) {
	profile, err := scraper.ExtractProfile(html)
	if err != nil {
		return StudentData{}, err
	}

	return StudentData{
		Profile:      profile,
		ExamSchedule: s.records(ctx, html, scraper.KindExamSchedule),
		Assessment:   s.records(ctx, html, scraper.KindAssessment),
		ExamResult:   s.records(ctx, html, scraper.KindExamResult),
		Internals:    s.records(ctx, html, scraper.KindInternalMarks),
	}, nil
}

// records runs one sub-record extraction, degrading to an empty result
// on failure. The portal composes pages differently per student
// category, one broken section must not take down the whole response.
func (s Service) records(ctx context.Context, html []byte, kind scraper.RecordKind) []scraper.Record {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("extract:%s", kind))
	defer span.End()

	records, err := scraper.ExtractRecords(html, kind)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to extract records",
			"kind", string(kind),
			"err", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction degraded to empty")
		return []scraper.Record{}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	if records == nil {
		records = []scraper.Record{}
	}
	return records
}
