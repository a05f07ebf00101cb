package lti

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signer produces one-legged OAuth 1.0 Authorization headers for the outcomes
// POST. The Basic Outcomes profile signs the XML body through the
// oauth_body_hash extension, so the body participates in the signature even
// though it is not form-encoded.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string

	// Injectable for tests.
	now   func() time.Time
	nonce func() string
}

func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		now:            time.Now,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// Authorization signs method+rawURL+body and returns the OAuth header value.
func (s *Signer) Authorization(method, rawURL string, body []byte) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse outcome url: %w", err)
	}

	bodyHash := sha1.Sum(body)

	params := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          "1.0",
		"oauth_body_hash":        base64.StdEncoding.EncodeToString(bodyHash[:]),
	}

	// Query parameters on the callback URL are part of the signature base.
	for key, values := range target.Query() {
		for _, value := range values {
			params[key] = value
		}
	}

	signature := s.sign(method, baseURI(target), params)
	params["oauth_signature"] = signature

	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "oauth_signature" || strings.HasPrefix(key, "oauth_") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var header strings.Builder
	header.WriteString(`OAuth realm=""`)
	for _, key := range keys {
		header.WriteString(", ")
		header.WriteString(percentEncode(key))
		header.WriteString(`="`)
		header.WriteString(percentEncode(params[key]))
		header.WriteString(`"`)
	}
	return header.String(), nil
}

func (s *Signer) sign(method, uri string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, percentEncode(key)+"="+percentEncode(params[key]))
	}

	base := strings.ToUpper(method) +
		"&" + percentEncode(uri) +
		"&" + percentEncode(strings.Join(pairs, "&"))

	// One-legged: the token secret half of the key is empty.
	key := percentEncode(s.ConsumerSecret) + "&"

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseURI normalizes the URL per RFC 5849 §3.4.1.2: lowercase scheme/host,
// default ports dropped, query and fragment excluded.
func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// percentEncode implements RFC 5849 §3.6 (stricter than url.QueryEscape:
// spaces become %20 and tildes stay literal).
func percentEncode(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			out.WriteByte(c)
		default:
			out.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return out.String()
}
