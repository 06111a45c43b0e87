package services

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString accepts a JSON string or number. The provider reports
// status and code in either form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type providerResult struct {
	Token string `json:"token"`
	Ref   string `json:"ref"`
}

type providerResponse struct {
	Status  flexString      `json:"status"`
	Code    flexString      `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Token   string          `json:"token"`
	Ref     string          `json:"ref"`
	RefCode string          `json:"ref_code"`
	Result  *providerResult `json:"result"`
}

// payload returns token and ref, nested values first.
func (r *providerResponse) payload() (token, ref string) {
	if r.Result != nil {
		token, ref = r.Result.Token, r.Result.Ref
	}
	if token == "" {
		token = r.Token
	}
	if ref == "" {
		ref = firstNonEmpty(r.Ref, r.RefCode)
	}
	return token, ref
}

// outcome is the tagged form of a provider response.
type outcome struct {
	ok      bool
	message string
	code    string
}

// interpretResponse is the only place provider success indicators are
// inspected: status "success"/"200" or code "200"/"0" (string or number).
func interpretResponse(r *providerResponse) outcome {
	status := strings.ToLower(strings.TrimSpace(string(r.Status)))
	code := strings.TrimSpace(string(r.Code))

	out := outcome{
		message: firstNonEmpty(r.Msg, r.Message, r.Detail),
		code:    firstNonEmpty(code, status),
	}

	switch {
	case status == statusSuccess, status == "200":
		out.ok = true
	case code == "200", code == "0":
		out.ok = true
	}
	return out
}
