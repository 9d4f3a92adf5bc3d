package config

import (
	"encoding/json"
	"net/url"
)

const secretMask = "<secret>"

// SecretURL is endpoint address which may carry credentials. DevTools
// websocket urls have browser session id in path, so when printed, logged or
// dumped only scheme and host are shown.
type SecretURL string

func (s SecretURL) masked() string {
	u, err := url.Parse(string(s))
	if err != nil || u.Host == "" {
		return secretMask
	}
	return u.Scheme + "://" + u.Host + "/" + secretMask
}

func (s SecretURL) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(s.masked())
}

func (s SecretURL) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return s.masked(), nil
}

func (s SecretURL) String() string {
	if len(s) == 0 {
		return ""
	}
	return s.masked()
}
