package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	scraper "auportal-backend/lib/scrapers/auportal"
	"auportal-backend/lib/telemetry"
	auportal "auportal-backend/services/auportal"

	"github.com/stretchr/testify/require"
)

const loginPageFixture = `
<html><body>
<form method="post" action="students_corner.php">
	<input type="hidden" name="form_token" value="tok-123"/>
	<audio controls><source src="captcha/audio.wav" type="audio/wav"/></audio>
</form>
</body></html>`

const studentPageFixture = `
<html><body>
<table>
	<tr><td>Name</td><td>John</td></tr>
	<tr><td>Register No</td><td>123456789</td></tr>
</table>
</body></html>`

const loginFailedFixture = `
<html><body>
<script>window.location='index.php';</script>
</body></html>`

func setup(t *testing.T) *httptest.Server {
	cleanup := telemetry.SetupForTesting(t, "test:services/auportal/server")
	t.Cleanup(cleanup)

	portalMux := http.NewServeMux()
	portalMux.HandleFunc("/home/index.php", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "abc123"})
		w.Write([]byte(loginPageFixture))
	})
	portalMux.HandleFunc("/home/captcha/audio.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFF fake audio"))
	})
	portalMux.HandleFunc("/home/students_corner.php", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("security_code_student") != "XK4P9" {
			w.Write([]byte(loginFailedFixture))
			return
		}
		w.Write([]byte(studentPageFixture))
	})
	portal := httptest.NewServer(portalMux)
	t.Cleanup(portal.Close)

	client, err := scraper.NewClient(context.Background(), scraper.ClientOptions{
		BaseUrl: portal.URL,
	})
	require.NoError(t, err)

	service := auportal.NewService(client, auportal.NewStore())
	srv := httptest.NewServer(NewRouter(service))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func postJSON(t *testing.T, url string, body, out any) int {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func TestApiWorkflow(t *testing.T) {
	srv := setup(t)

	var init auportal.InitSessionResult
	status := getJSON(t, srv.URL+"/api/init-session", &init)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, init.SessionId)
	require.True(t, init.HasAudioCaptcha)

	res, err := http.Get(srv.URL + "/api/captcha-audio/" + init.SessionId)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "audio/wav", res.Header.Get("Content-Type"))
	require.Equal(t, "inline; filename=captcha.wav", res.Header.Get("Content-Disposition"))

	var data auportal.StudentData
	status = postJSON(t, srv.URL+"/api/fetch-data", auportal.FetchDataRequest{
		SessionId:       init.SessionId,
		RegisterNo:      "123456789",
		Dob:             "29-02-2020",
		CaptchaSolution: "XK4P9",
	}, &data)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "John", data.Profile["name"])
	// absent sub-records come back as empty collections, not null
	require.NotNil(t, data.ExamSchedule)
	require.NotNil(t, data.Internals)

	// the session is single use
	var body map[string]any
	status = postJSON(t, srv.URL+"/api/fetch-data", auportal.FetchDataRequest{
		SessionId:       init.SessionId,
		RegisterNo:      "123456789",
		Dob:             "29-02-2020",
		CaptchaSolution: "XK4P9",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "expired")
}

func TestCaptchaAudioUnknownSession(t *testing.T) {
	srv := setup(t)

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/captcha-audio/not-a-session", &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, body["error"])
}

func TestFetchDataValidation(t *testing.T) {
	srv := setup(t)

	var init auportal.InitSessionResult
	getJSON(t, srv.URL+"/api/init-session", &init)

	var body map[string]any
	status := postJSON(t, srv.URL+"/api/fetch-data", auportal.FetchDataRequest{
		SessionId:       init.SessionId,
		RegisterNo:      "1234567",
		Dob:             "29-02-2020",
		CaptchaSolution: "x",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "register number")

	status = postJSON(t, srv.URL+"/api/fetch-data", auportal.FetchDataRequest{
		SessionId:       init.SessionId,
		RegisterNo:      "123456789",
		Dob:             "31-02-2020",
		CaptchaSolution: "x",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "date of birth")

	status = postJSON(t, srv.URL+"/api/fetch-data", map[string]string{
		"session_id": init.SessionId,
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "Missing required fields")
}

func TestFetchDataWrongCaptcha(t *testing.T) {
	srv := setup(t)

	var init auportal.InitSessionResult
	getJSON(t, srv.URL+"/api/init-session", &init)

	var body map[string]any
	status := postJSON(t, srv.URL+"/api/fetch-data", auportal.FetchDataRequest{
		SessionId:       init.SessionId,
		RegisterNo:      "123456789",
		Dob:             "29-02-2020",
		CaptchaSolution: "WRONG",
	}, &body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotEmpty(t, body["error"])
}

func TestLegacyEndpoint(t *testing.T) {
	srv := setup(t)

	// the legacy route reports every problem with a 200 and an error in
	// the body
	for _, tt := range []struct {
		name  string
		query string
		want  string
	}{
		{"missing params", "", "Request parameters are not in correct format."},
		{"both invalid", "?register_no=12&dob=99-99-9999", "Invalid Register Number and Date of Birth."},
		{"bad register no", "?register_no=12&dob=29-02-2020", "Invalid Register Number."},
		{"bad dob", "?register_no=123456789&dob=31-02-2020", "Date of Birth is invalid."},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			status := getJSON(t, srv.URL+"/get"+tt.query, &body)
			require.Equal(t, http.StatusOK, status)
			require.Equal(t, tt.want, body["error"])
		})
	}
}
