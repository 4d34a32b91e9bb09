package auportal

import "fmt"

var (
	// the portal could not be reached at all
	UpstreamUnavailable = fmt.Errorf("could not connect to the portal")
	// the portal did not answer within the request deadline
	UpstreamTimeout = fmt.Errorf("connection to the portal timed out")
	// the portal answered with an unexpected status code
	UpstreamError = fmt.Errorf("the portal returned an error")
	// wrong credentials or a wrong captcha solution, the portal does not
	// tell these apart so neither do we
	AuthenticationFailed = fmt.Errorf("login failed, check your credentials and captcha")
	// the response carried no tables at all, the authoritative sign that
	// login did not actually succeed
	NoTables = fmt.Errorf("could not find any tables in the portal response")
	// a sub-record table was located but its shape is unusable
	MalformedTable = fmt.Errorf("malformed record table")
)
