package scenario

// securityPayload is one entry of the fixed payload table the "security"
// category draws from (§4.4). Category groups payloads under the attack
// family they probe for; a conformant server is expected either to reject
// the call outright or to sanitize the payload before using it.
type securityPayload struct {
	category string
	payload  string
	expected ExpectedBehavior
}

// securityPayloads is the closed table of synthetic attack strings tried
// against the first string parameter of any tool that accepts one.
var securityPayloads = []securityPayload{
	{"sql_injection", `' OR '1'='1`, ExpectedReject},
	{"sql_injection", `'; DROP TABLE users; --`, ExpectedReject},
	{"xss", `<script>alert(1)</script>`, ExpectedSanitize},
	{"xss", `"><img src=x onerror=alert(1)>`, ExpectedSanitize},
	{"path_traversal", `../../../../etc/passwd`, ExpectedReject},
	{"path_traversal", `..\..\..\..\windows\win.ini`, ExpectedReject},
	{"command_injection", `; cat /etc/passwd`, ExpectedReject},
	{"command_injection", "`rm -rf /`", ExpectedReject},
	{"ssrf", `http://169.254.169.254/latest/meta-data/`, ExpectedReject},
	{"ssrf", `http://localhost:6379/`, ExpectedReject},
}
